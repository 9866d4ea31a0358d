package gameserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/cory-johannsen/arenactl/internal/game/command"
)

// builtinCommands returns the chat commands every session carries, bound
// to d.
func (d *Dispatcher) builtinCommands() []command.Command {
	return []command.Command{
		{
			Name:    "/help",
			Aliases: []string{"/h", "/?"},
			Help:    "List the commands you can use",
			Handler: d.helpCommand,
		},
		{
			Name:    "/stats",
			Aliases: []string{"/kd"},
			Help:    "Show your kills and deaths",
			Handler: d.statsCommand,
		},
		{
			Name:    "/kill",
			Aliases: []string{"/suicide"},
			Help:    "Eliminate yourself",
			Handler: d.killCommand,
		},
		{
			Name:      "/start",
			Help:      "Start the round now",
			AdminOnly: true,
			Handler:   d.startCommand,
		},
	}
}

func (d *Dispatcher) helpCommand(ctx context.Context, inv command.Invocation) error {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, cmd := range d.commands.Registry().Visible(inv.Caller.IsAdmin) {
		b.WriteString("\n")
		b.WriteString(cmd.Name)
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(cmd.Aliases, ", "))
		}
		if cmd.Help != "" {
			b.WriteString(" - ")
			b.WriteString(cmd.Help)
		}
	}
	return d.tell(ctx, inv, b.String())
}

func (d *Dispatcher) statsCommand(ctx context.Context, inv command.Invocation) error {
	p, err := d.players.Get(inv.Caller.ID)
	if err != nil {
		return err
	}
	return d.tell(ctx, inv, fmt.Sprintf("Kills: %d | Deaths: %d", p.Kills, p.Deaths))
}

func (d *Dispatcher) killCommand(ctx context.Context, inv command.Invocation) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.runtime.Kill(ctx, inv.Caller.ID)
}

func (d *Dispatcher) startCommand(ctx context.Context, inv command.Invocation) error {
	started, err := d.round.ForceStart(ctx)
	if err != nil || started {
		return err
	}
	shortened, err := d.round.ShortenCountdown(ctx)
	if err != nil || shortened {
		return err
	}
	return d.tell(ctx, inv, "The round is already running")
}

func (d *Dispatcher) tell(ctx context.Context, inv command.Invocation, msg string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.runtime.MessageToPlayer(ctx, inv.Caller.ID, msg)
}
