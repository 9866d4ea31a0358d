// Package gameserver binds the game-server runtime's event feed to the
// session store, the round controller and the chat command dispatcher.
package gameserver

import (
	"context"

	"github.com/cory-johannsen/arenactl/internal/game/player"
	"github.com/cory-johannsen/arenactl/internal/game/round"
)

// FullHealth is the health a killer is restored to after an elimination.
const FullHealth float32 = 100

//go:generate mockgen -package=mocks -destination=mocks/mock_runtime.go github.com/cory-johannsen/arenactl/internal/gameserver Runtime

// Runtime is the command surface of the external game-server process.
// Implementations must not block indefinitely; callers bound every call
// with a context deadline.
type Runtime interface {
	round.Runtime
	SayToChat(ctx context.Context, msg string) error
	MessageToPlayer(ctx context.Context, id player.ID, msg string) error
	Kill(ctx context.Context, id player.ID) error
	SetHealth(ctx context.Context, id player.ID, hp float32) error
}
