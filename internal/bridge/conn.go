package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arenactl/internal/game/player"
)

// DefaultSendBuffer is the outbound queue length when none is configured.
const DefaultSendBuffer = 256

var (
	// ErrQueueFull is returned when the outbound queue has no room.
	ErrQueueFull = errors.New("outbound queue full")
	// ErrClosed is returned once the connection has been closed.
	ErrClosed = errors.New("connection closed")
)

// Conn is the outbound half of a game-server connection. Each call encodes
// a command envelope into a bounded queue drained by the websocket writer;
// no call ever blocks.
//
// Conn implements gameserver.Runtime and scripting.Messenger.
type Conn struct {
	mu     sync.Mutex
	out    chan Envelope
	closed bool
}

// NewConn creates an open Conn with a queue of size envelopes.
//
// Postcondition: size <= 0 selects DefaultSendBuffer.
func NewConn(size int) *Conn {
	if size <= 0 {
		size = DefaultSendBuffer
	}
	return &Conn{out: make(chan Envelope, size)}
}

// Outbound returns the queue the writer drains. It is closed by Close.
func (c *Conn) Outbound() <-chan Envelope {
	return c.out
}

// Close closes the queue. Further sends return ErrClosed.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.out)
	}
}

// push enqueues env without blocking.
func (c *Conn) push(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.out <- env:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *Conn) send(ctx context.Context, typ string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env, err := newEnvelope(uuid.NewString(), typ, data)
	if err != nil {
		return err
	}
	return c.push(env)
}

func (c *Conn) SayToChat(ctx context.Context, msg string) error {
	return c.send(ctx, TypeSayToChat, MessageData{Message: msg})
}

func (c *Conn) MessageToPlayer(ctx context.Context, id player.ID, msg string) error {
	return c.send(ctx, TypeMessageToPlayer, PlayerMessageData{ID: id, Message: msg})
}

func (c *Conn) Kill(ctx context.Context, id player.ID) error {
	return c.send(ctx, TypeKill, PlayerIDData{ID: id})
}

func (c *Conn) SetHealth(ctx context.Context, id player.ID, hp float32) error {
	return c.send(ctx, TypeSetHealth, HealthData{ID: id, Health: hp})
}

func (c *Conn) SetPlayerCollision(ctx context.Context, enabled bool) error {
	return c.send(ctx, TypeSetPlayerCollision, CollisionData{Enabled: enabled})
}

func (c *Conn) SetModifiers(ctx context.Context, id player.ID, mods player.Modifiers) error {
	return c.send(ctx, TypeSetModifiers, ModifiersData{ID: id, Modifiers: mods})
}

func (c *Conn) ClearMapRotation(ctx context.Context) error {
	return c.send(ctx, TypeClearMapRotation, nil)
}

func (c *Conn) AddMapToRotation(ctx context.Context, name string) error {
	return c.send(ctx, TypeAddMapToRotation, NameData{Name: name})
}

func (c *Conn) ClearGamemodeRotation(ctx context.Context) error {
	return c.send(ctx, TypeClearGamemodeRotation, nil)
}

func (c *Conn) AddGamemodeToRotation(ctx context.Context, name string) error {
	return c.send(ctx, TypeAddGamemodeToRotation, NameData{Name: name})
}

func (c *Conn) ForceStartGame(ctx context.Context) error {
	return c.send(ctx, TypeForceStartGame, nil)
}

func (c *Conn) SetRoundSecondsLeft(ctx context.Context, seconds int) error {
	return c.send(ctx, TypeSetRoundSecondsLeft, SecondsData{Seconds: seconds})
}
