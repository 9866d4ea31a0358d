package gameserver

import (
	"fmt"

	"github.com/cory-johannsen/arenactl/internal/game/player"
	"github.com/cory-johannsen/arenactl/internal/game/round"
)

// Category groups events that must be handled one at a time, in order.
// Different categories are handled concurrently.
type Category uint8

const (
	CategoryServer Category = iota
	CategoryTick
	CategoryPlayer
	CategoryChat
	categoryCount
)

func (c Category) String() string {
	switch c {
	case CategoryServer:
		return "server"
	case CategoryTick:
		return "tick"
	case CategoryPlayer:
		return "player"
	case CategoryChat:
		return "chat"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Event is an inbound notification from the game-server runtime.
type Event interface {
	Category() Category
	Name() string
}

// ServerConnected reports a fresh connection of the game server.
type ServerConnected struct {
	Round round.Snapshot
}

// ServerReconnected reports the game server returning after a drop.
type ServerReconnected struct {
	Round round.Snapshot
}

// ServerDisconnected reports the game server going away.
type ServerDisconnected struct{}

// RoundUpdated carries the runtime's authoritative round state.
type RoundUpdated struct {
	Round round.Snapshot
}

// Tick is the runtime's periodic update.
type Tick struct{}

// PlayerJoining asks for the stats a joining player is admitted with.
type PlayerJoining struct {
	ID    player.ID
	Stats player.Stats
}

// PlayerConnected reports a player entering the server.
type PlayerConnected struct {
	Player player.Ref
}

// PlayerDisconnected reports a player leaving the server.
type PlayerDisconnected struct {
	Player player.Ref
}

// PlayerDowned reports one player eliminating another, or themselves.
type PlayerDowned struct {
	Killer player.Ref
	Victim player.Ref
}

// PlayerSpawning asks for the spawn request a player spawns with.
type PlayerSpawning struct {
	Player  player.Ref
	Request player.SpawnRequest
}

// ChatMessage asks whether a typed message is shown as ordinary chat.
type ChatMessage struct {
	Player  player.Ref
	Channel player.ChatChannel
	Text    string
}

func (ServerConnected) Category() Category    { return CategoryServer }
func (ServerReconnected) Category() Category  { return CategoryServer }
func (ServerDisconnected) Category() Category { return CategoryServer }
func (RoundUpdated) Category() Category       { return CategoryServer }
func (Tick) Category() Category               { return CategoryTick }
func (PlayerJoining) Category() Category      { return CategoryPlayer }
func (PlayerConnected) Category() Category    { return CategoryPlayer }
func (PlayerDisconnected) Category() Category { return CategoryPlayer }
func (PlayerDowned) Category() Category       { return CategoryPlayer }
func (PlayerSpawning) Category() Category     { return CategoryPlayer }
func (ChatMessage) Category() Category        { return CategoryChat }

func (ServerConnected) Name() string    { return "server_connected" }
func (ServerReconnected) Name() string  { return "server_reconnected" }
func (ServerDisconnected) Name() string { return "server_disconnected" }
func (RoundUpdated) Name() string       { return "round_updated" }
func (Tick) Name() string               { return "tick" }
func (PlayerJoining) Name() string      { return "player_joining" }
func (PlayerConnected) Name() string    { return "player_connected" }
func (PlayerDisconnected) Name() string { return "player_disconnected" }
func (PlayerDowned) Name() string       { return "player_downed" }
func (PlayerSpawning) Name() string     { return "player_spawning" }
func (ChatMessage) Name() string        { return "chat_message" }

// Outcome is the decision returned to the runtime for an event. Only the
// field matching the event is set.
type Outcome struct {
	// Stats answers PlayerJoining.
	Stats *player.Stats
	// Spawn answers PlayerSpawning.
	Spawn *player.SpawnRequest
	// AllowMessage answers ChatMessage: true lets the text through as chat.
	AllowMessage bool
}
