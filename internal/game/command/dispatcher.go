package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/cory-johannsen/arenactl/internal/game/player"
)

// Dispatcher turns chat text into permission-gated command invocations.
type Dispatcher struct {
	registry *Registry
	prefix   string
}

// NewDispatcher creates a Dispatcher resolving against registry.
//
// Precondition: registry must be non-nil. An empty prefix selects DefaultPrefix.
func NewDispatcher(registry *Registry, prefix string) *Dispatcher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Dispatcher{registry: registry, prefix: prefix}
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch resolves text and runs the matching handler.
//
// handled is false when text is ordinary chat: it does not start with the
// prefix or names no registered command. A matched admin-only command sent
// by a non-admin is reported as handled without running the handler, so the
// attempt is swallowed.
//
// Postcondition: err is non-nil only when a handler ran and failed.
func (d *Dispatcher) Dispatch(ctx context.Context, caller Caller, channel player.ChatChannel, text string) (handled bool, err error) {
	parsed := Parse(text)
	if !strings.HasPrefix(parsed.Command, d.prefix) {
		return false, nil
	}

	cmd, ok := d.registry.Resolve(parsed.Command)
	if !ok {
		return false, nil
	}

	if cmd.AdminOnly && !caller.IsAdmin {
		return true, nil
	}
	if cmd.Handler == nil {
		return true, nil
	}

	inv := Invocation{
		Caller:  caller,
		Channel: channel,
		Command: cmd,
		Token:   parsed.Command,
		Args:    parsed.Args,
		RawArgs: parsed.RawArgs,
	}
	if err := cmd.Handler(ctx, inv); err != nil {
		return true, fmt.Errorf("running %s: %w", cmd.Name, err)
	}
	return true, nil
}
