// Package bridge connects game servers to arenactl over a websocket. Each
// connection gets its own session store, round controller, chat commands
// and event loop.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/cory-johannsen/arenactl/internal/game/player"
	"github.com/cory-johannsen/arenactl/internal/game/round"
	"github.com/cory-johannsen/arenactl/internal/gameserver"
)

// Envelope is the frame exchanged in both directions.
// Requests carry an ID; the answer is a TypeReply envelope with the same ID.
type Envelope struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound types, sent by the game server.
const (
	TypeHello              = "hello"
	TypeRoundUpdated       = "round_updated"
	TypeTick               = "tick"
	TypePlayerJoining      = "player_joining"
	TypePlayerConnected    = "player_connected"
	TypePlayerDisconnected = "player_disconnected"
	TypePlayerDowned       = "player_downed"
	TypePlayerSpawning     = "player_spawning"
	TypeChatMessage        = "chat_message"
)

// Outbound types, sent to the game server.
const (
	TypeReply                 = "reply"
	TypeError                 = "error"
	TypeSayToChat             = "say_to_chat"
	TypeMessageToPlayer       = "message_to_player"
	TypeKill                  = "kill"
	TypeSetHealth             = "set_health"
	TypeSetPlayerCollision    = "set_player_collision"
	TypeSetModifiers          = "set_modifiers"
	TypeClearMapRotation      = "clear_map_rotation"
	TypeAddMapToRotation      = "add_map_to_rotation"
	TypeClearGamemodeRotation = "clear_gamemode_rotation"
	TypeAddGamemodeToRotation = "add_gamemode_to_rotation"
	TypeForceStartGame        = "force_start_game"
	TypeSetRoundSecondsLeft   = "set_round_seconds_left"
)

// RoundData is the payload of TypeHello, which opens a session, and of
// TypeRoundUpdated.
type RoundData struct {
	Round round.Snapshot `json:"round"`
}

// JoiningData is the payload of TypePlayerJoining.
type JoiningData struct {
	ID    player.ID    `json:"id,string"`
	Stats player.Stats `json:"stats"`
}

// PlayerData is the payload of TypePlayerConnected and TypePlayerDisconnected.
type PlayerData struct {
	Player player.Ref `json:"player"`
}

// DownedData is the payload of TypePlayerDowned.
type DownedData struct {
	Killer player.Ref `json:"killer"`
	Victim player.Ref `json:"victim"`
}

// SpawningData is the payload of TypePlayerSpawning.
type SpawningData struct {
	Player  player.Ref          `json:"player"`
	Request player.SpawnRequest `json:"request"`
}

// ChatData is the payload of TypeChatMessage.
type ChatData struct {
	Player  player.Ref         `json:"player"`
	Channel player.ChatChannel `json:"channel"`
	Text    string             `json:"text"`
}

// ReplyData answers a request. Only the field matching the request is set.
type ReplyData struct {
	Stats *player.Stats        `json:"stats,omitempty"`
	Spawn *player.SpawnRequest `json:"spawn,omitempty"`
	Allow *bool                `json:"allow,omitempty"`
	Error string               `json:"error,omitempty"`
}

// ErrorData reports a frame the bridge could not process.
type ErrorData struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Outbound command payloads.
type (
	MessageData struct {
		Message string `json:"message"`
	}
	PlayerMessageData struct {
		ID      player.ID `json:"id,string"`
		Message string    `json:"message"`
	}
	PlayerIDData struct {
		ID player.ID `json:"id,string"`
	}
	HealthData struct {
		ID     player.ID `json:"id,string"`
		Health float32   `json:"health"`
	}
	CollisionData struct {
		Enabled bool `json:"enabled"`
	}
	ModifiersData struct {
		ID        player.ID        `json:"id,string"`
		Modifiers player.Modifiers `json:"modifiers"`
	}
	NameData struct {
		Name string `json:"name"`
	}
	SecondsData struct {
		Seconds int `json:"seconds"`
	}
)

// isRequest reports whether an inbound type expects a TypeReply.
func isRequest(typ string) bool {
	switch typ {
	case TypePlayerJoining, TypePlayerSpawning, TypeChatMessage:
		return true
	}
	return false
}

// decodeEvent maps an inbound envelope onto its event.
//
// Postcondition: Returns an error for TypeHello, unknown types and
// malformed payloads.
func decodeEvent(env Envelope) (gameserver.Event, error) {
	switch env.Type {
	case TypeRoundUpdated:
		var d RoundData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		return gameserver.RoundUpdated{Round: d.Round}, nil
	case TypeTick:
		return gameserver.Tick{}, nil
	case TypePlayerJoining:
		var d JoiningData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		return gameserver.PlayerJoining{ID: d.ID, Stats: d.Stats}, nil
	case TypePlayerConnected:
		var d PlayerData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		return gameserver.PlayerConnected{Player: d.Player}, nil
	case TypePlayerDisconnected:
		var d PlayerData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		return gameserver.PlayerDisconnected{Player: d.Player}, nil
	case TypePlayerDowned:
		var d DownedData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		return gameserver.PlayerDowned{Killer: d.Killer, Victim: d.Victim}, nil
	case TypePlayerSpawning:
		var d SpawningData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		return gameserver.PlayerSpawning{Player: d.Player, Request: d.Request}, nil
	case TypeChatMessage:
		var d ChatData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		return gameserver.ChatMessage{Player: d.Player, Channel: d.Channel, Text: d.Text}, nil
	default:
		return nil, fmt.Errorf("unknown frame type %q", env.Type)
	}
}

func decodeData(env Envelope, v any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%s: missing data", env.Type)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%s: %w", env.Type, err)
	}
	return nil
}

// encodeReply builds the reply to a request from its outcome.
func encodeReply(id string, ev gameserver.Event, res gameserver.Result) (Envelope, error) {
	var d ReplyData
	switch ev.(type) {
	case gameserver.PlayerJoining:
		d.Stats = res.Outcome.Stats
	case gameserver.PlayerSpawning:
		d.Spawn = res.Outcome.Spawn
	case gameserver.ChatMessage:
		allow := res.Outcome.AllowMessage
		d.Allow = &allow
	}
	if res.Err != nil {
		d.Error = res.Err.Error()
	}
	return newEnvelope(id, TypeReply, d)
}

func newEnvelope(id, typ string, data any) (Envelope, error) {
	env := Envelope{ID: id, Type: typ}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s: %w", typ, err)
	}
	env.Data = raw
	return env, nil
}
