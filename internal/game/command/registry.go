package command

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Conflict describes an invocation string claimed by more than one command.
type Conflict struct {
	// Key is the case-folded invocation string.
	Key string
	// Winner is the primary name of the command Resolve returns for Key.
	Winner string
	// Shadowed is the primary name of the command that can no longer be
	// reached through Key.
	Shadowed string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%q resolves to %q, shadowing %q", c.Key, c.Winner, c.Shadowed)
}

// Registry maps command names and aliases to Command definitions.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	ordered   []*Command
	names     map[string]*Command // folded primary name → command
	aliases   map[string]*Command // folded alias → command
	conflicts []Conflict
}

// NewRegistry creates a Registry holding cmds in registration order.
//
// When two commands claim the same string the first registrant keeps it and
// the collision is recorded; see Conflicts and Validate.
// Postcondition: Returns a non-nil Registry.
func NewRegistry(cmds ...Command) *Registry {
	r := &Registry{
		ordered: make([]*Command, 0, len(cmds)),
		names:   make(map[string]*Command, len(cmds)),
		aliases: make(map[string]*Command),
	}

	for i := range cmds {
		cmd := &cmds[i]
		r.ordered = append(r.ordered, cmd)

		key := fold(cmd.Name)
		if existing, ok := r.names[key]; ok {
			r.conflicts = append(r.conflicts, Conflict{Key: key, Winner: existing.Name, Shadowed: cmd.Name})
		} else if owner, ok := r.aliases[key]; ok {
			// An earlier alias keeps the string; the name stays unreachable.
			r.conflicts = append(r.conflicts, Conflict{Key: key, Winner: owner.Name, Shadowed: cmd.Name})
		} else {
			r.names[key] = cmd
		}

		for _, alias := range cmd.Aliases {
			key := fold(alias)
			if owner, ok := r.names[key]; ok {
				if owner != cmd {
					r.conflicts = append(r.conflicts, Conflict{Key: key, Winner: owner.Name, Shadowed: cmd.Name})
				}
				continue
			}
			if owner, ok := r.aliases[key]; ok {
				if owner != cmd {
					r.conflicts = append(r.conflicts, Conflict{Key: key, Winner: owner.Name, Shadowed: cmd.Name})
				}
				continue
			}
			r.aliases[key] = cmd
		}
	}

	return r
}

// Resolve looks up a command by case-insensitive exact match on primary
// names and aliases. A string belongs to at most one command.
//
// Postcondition: Returns (command, true) if found, or (nil, false).
func (r *Registry) Resolve(token string) (*Command, bool) {
	key := fold(token)
	if cmd, ok := r.names[key]; ok {
		return cmd, true
	}
	if cmd, ok := r.aliases[key]; ok {
		return cmd, true
	}
	return nil, false
}

// Commands returns all registered commands in registration order.
func (r *Registry) Commands() []*Command {
	out := make([]*Command, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Visible returns the commands a caller with the given admin flag may run,
// in registration order.
func (r *Registry) Visible(isAdmin bool) []*Command {
	out := make([]*Command, 0, len(r.ordered))
	for _, cmd := range r.ordered {
		if cmd.AdminOnly && !isAdmin {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

// Conflicts returns every name or alias collision found at construction.
func (r *Registry) Conflicts() []Conflict {
	out := make([]Conflict, len(r.conflicts))
	copy(out, r.conflicts)
	return out
}

// Validate reports all collisions as a single error.
//
// Postcondition: Returns nil if every name and alias is unique.
func (r *Registry) Validate() error {
	if len(r.conflicts) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(r.conflicts))
	for _, c := range r.conflicts {
		msgs = append(msgs, c.String())
	}
	return fmt.Errorf("command registry conflicts: %s", strings.Join(msgs, "; "))
}

// fold returns the case-folded form of s. A Caser is stateful, so one is
// created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
