// Package command provides the chat command registry, parser and dispatcher.
package command

import (
	"context"

	"github.com/cory-johannsen/arenactl/internal/game/player"
)

// DefaultPrefix marks chat text as a command invocation.
const DefaultPrefix = "/"

// Handler executes a resolved, authorized command.
//
// Handlers run synchronously on the dispatching goroutine and may mutate
// player or round state through the owning components' APIs.
type Handler func(ctx context.Context, inv Invocation) error

// Command defines a chat command.
type Command struct {
	// Name is the primary invocation string, prefix included (e.g. "/stats").
	Name string
	// Aliases are alternate invocation strings, prefix included.
	Aliases []string
	// Help is the short help text listed by the help command.
	Help string
	// AdminOnly restricts execution to players holding the admin flag.
	AdminOnly bool
	// Handler runs the command.
	Handler Handler
}

// Caller is the invoking player as seen by a command.
type Caller struct {
	ID      player.ID
	Name    string
	IsAdmin bool
}

// Invocation is a structured command call built from chat text.
type Invocation struct {
	Caller  Caller
	Channel player.ChatChannel
	Command *Command
	// Token is the command word exactly as the player typed it, lowercased.
	Token string
	// Args are the whitespace separated words after the command token.
	Args []string
	// RawArgs is the argument tail with its inner spacing preserved.
	RawArgs string
}
