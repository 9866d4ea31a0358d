package round

import "fmt"

// State is the lifecycle phase of the current round.
type State uint8

const (
	StateWaitingForPlayers State = iota
	StateCountingDown
	StatePlaying
)

var stateNames = map[State]string{
	StateWaitingForPlayers: "waiting_for_players",
	StateCountingDown:      "counting_down",
	StatePlaying:           "playing",
}

// String returns the snake_case state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// ParseState converts a snake_case name back into a State.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown round state %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, fmt.Errorf("unknown round state %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// next is the natural successor of each state.
var next = map[State]State{
	StateWaitingForPlayers: StateCountingDown,
	StateCountingDown:      StatePlaying,
	StatePlaying:           StateWaitingForPlayers,
}

// CanTransition reports whether from → to follows the round state machine.
// Staying in place is allowed, as is the forced jump from waiting straight
// to playing.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	if next[from] == to {
		return true
	}
	return from == StateWaitingForPlayers && to == StatePlaying
}

// Snapshot is the round state as reported by the runtime.
type Snapshot struct {
	State       State `json:"state"`
	SecondsLeft int   `json:"seconds_left"`
}
