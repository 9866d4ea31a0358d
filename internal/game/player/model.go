// Package player defines the value types exchanged with the game-server
// runtime for a connected participant.
package player

import "fmt"

// ID is the stable identity of a player for the lifetime of a session.
type ID uint64

// String returns the decimal form of the identity.
func (id ID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// Roles is a bit set of privileges granted by the runtime.
type Roles uint64

const (
	RoleAdmin Roles = 1 << iota
	RoleModerator
	RoleSpecial
	RoleVip
)

// Has reports whether every bit of r2 is set in r.
func (r Roles) Has(r2 Roles) bool {
	return r&r2 == r2
}

// Progress is the rank and prestige tier shown to other players.
type Progress struct {
	Rank     int `json:"rank"`
	Prestige int `json:"prestige"`
}

// Stats is the progression and role data the runtime supplies when a
// player is joining. The control module may rewrite it before admission.
type Stats struct {
	Progress Progress `json:"progress"`
	Roles    Roles    `json:"roles"`
	IsBanned bool     `json:"is_banned"`
}

// ChatChannel is the channel a chat message was typed into.
type ChatChannel uint8

const (
	ChannelAll ChatChannel = iota
	ChannelTeam
	ChannelSquad
)

// String returns the lowercase channel name.
func (c ChatChannel) String() string {
	switch c {
	case ChannelAll:
		return "all"
	case ChannelTeam:
		return "team"
	case ChannelSquad:
		return "squad"
	default:
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
}

// Loadout is the equipment a player requested for a spawn.
type Loadout struct {
	PrimaryWeapon   string `json:"primary_weapon"`
	SecondaryWeapon string `json:"secondary_weapon"`
	FirstAid        string `json:"first_aid"`
	LightGadget     string `json:"light_gadget"`
	HeavyGadget     string `json:"heavy_gadget"`
	Throwable       string `json:"throwable"`
}

// Vector3 is a world position.
type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Stand is the body posture a player spawns in.
type Stand uint8

const (
	StandStanding Stand = iota
	StandCrouching
	StandProne
)

// SpawnRequest is the runtime's description of an imminent spawn.
type SpawnRequest struct {
	Loadout  Loadout `json:"loadout"`
	Position Vector3 `json:"position"`
	Stand    Stand   `json:"stand"`
}

// Modifiers are the per-player movement and combat multipliers enforced
// by the control module.
type Modifiers struct {
	JumpHeight   float32 `json:"jump_height" yaml:"jump_height"`
	RunningSpeed float32 `json:"running_speed" yaml:"running_speed"`
	FallDamage   float32 `json:"fall_damage" yaml:"fall_damage"`
	ReloadSpeed  float32 `json:"reload_speed" yaml:"reload_speed"`
	CanSpectate  bool    `json:"can_spectate" yaml:"can_spectate"`
	RespawnTime  int     `json:"respawn_time" yaml:"respawn_time"`
}

// Ref identifies a player as delivered by the runtime on every event.
// The id travels as a decimal string to survive JSON number precision.
type Ref struct {
	ID   ID     `json:"id,string"`
	Name string `json:"name"`
}

// String returns "Name (id)".
func (r Ref) String() string {
	return fmt.Sprintf("%s (%d)", r.Name, uint64(r.ID))
}
