// Package round owns the round and server configuration of one game-server
// session and drives its match lifecycle.
package round

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arenactl/internal/game/player"
)

// ErrEmptyRotation is returned when a rotation would be left without entries.
var ErrEmptyRotation = errors.New("rotation must not be empty")

// Runtime is the part of the game-server command surface the Controller
// drives.
type Runtime interface {
	SetPlayerCollision(ctx context.Context, enabled bool) error
	SetModifiers(ctx context.Context, id player.ID, mods player.Modifiers) error
	ClearMapRotation(ctx context.Context) error
	AddMapToRotation(ctx context.Context, name string) error
	ClearGamemodeRotation(ctx context.Context) error
	AddGamemodeToRotation(ctx context.Context, name string) error
	ForceStartGame(ctx context.Context) error
	SetRoundSecondsLeft(ctx context.Context, seconds int) error
}

// Roster lists the players currently tracked for the session.
type Roster interface {
	IDs() []player.ID
}

// Settings is a copy of the round and server configuration.
type Settings struct {
	State           State
	SecondsLeft     int
	Maps            []string
	Gamemodes       []string
	PlayerCollision bool
	Modifiers       player.Modifiers
}

func (s Settings) clone() Settings {
	s.Maps = append([]string(nil), s.Maps...)
	s.Gamemodes = append([]string(nil), s.Gamemodes...)
	return s
}

// MinCountdown is the shortest countdown ShortenCountdown leaves.
const MinCountdown = 1

// Controller is the single writer of the session's Settings.
// All methods are safe for concurrent use. Outbound runtime calls are made
// from a copy taken under the lock, never while holding it.
type Controller struct {
	mu       sync.Mutex
	settings Settings
	profile  Profile
	runtime  Runtime
	roster   Roster
	logger   *zap.Logger
}

// NewController creates a Controller initialized from profile in the
// waiting state.
//
// Precondition: profile must be valid; runtime, roster and logger must be non-nil.
func NewController(profile Profile, runtime Runtime, roster Roster, logger *zap.Logger) *Controller {
	c := &Controller{
		profile: profile,
		runtime: runtime,
		roster:  roster,
		logger:  logger,
	}
	c.settings = c.fromProfile(Snapshot{State: StateWaitingForPlayers})
	return c
}

func (c *Controller) fromProfile(snap Snapshot) Settings {
	return Settings{
		State:           snap.State,
		SecondsLeft:     snap.SecondsLeft,
		Maps:            append([]string(nil), c.profile.Maps...),
		Gamemodes:       append([]string(nil), c.profile.Gamemodes...),
		PlayerCollision: c.profile.PlayerCollision,
		Modifiers:       c.profile.Modifiers,
	}
}

// Reset discards all configuration and reinitializes it from the profile
// and the runtime's reported round state.
func (c *Controller) Reset(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = c.fromProfile(snap)
}

// Observe adopts the runtime's authoritative round state.
//
// Postcondition: The state is always adopted. Returns false when the change
// does not follow the state machine.
func (c *Controller) Observe(snap Snapshot) bool {
	c.mu.Lock()
	from := c.settings.State
	c.settings.State = snap.State
	c.settings.SecondsLeft = snap.SecondsLeft
	c.mu.Unlock()

	ok := CanTransition(from, snap.State)
	if !ok {
		c.logger.Warn("unexpected round transition",
			zap.Stringer("from", from),
			zap.Stringer("to", snap.State),
		)
	}
	return ok
}

// Setup pushes the whole configuration to the runtime and then starts the
// round as early as the current state allows.
//
// Postcondition: Local settings are unchanged by outbound failures; all
// failures are returned joined.
func (c *Controller) Setup(ctx context.Context) error {
	s := c.Settings()

	var errs []error
	if err := c.runtime.SetPlayerCollision(ctx, s.PlayerCollision); err != nil {
		errs = append(errs, fmt.Errorf("setting collision: %w", err))
	}
	if err := c.pushMaps(ctx, s.Maps); err != nil {
		errs = append(errs, err)
	}
	if err := c.pushGamemodes(ctx, s.Gamemodes); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ForceStart(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ShortenCountdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ForceStart jumps a waiting round straight to playing.
//
// Postcondition: Returns false, doing nothing, unless the state was
// WaitingForPlayers.
func (c *Controller) ForceStart(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.settings.State != StateWaitingForPlayers {
		c.mu.Unlock()
		return false, nil
	}
	c.settings.State = StatePlaying
	c.mu.Unlock()

	c.logger.Info("forcing round start")
	if err := c.runtime.ForceStartGame(ctx); err != nil {
		return true, fmt.Errorf("forcing round start: %w", err)
	}
	return true, nil
}

// ShortenCountdown cuts a running countdown down to MinCountdown seconds.
//
// Postcondition: Returns false, doing nothing, unless the state was
// CountingDown.
func (c *Controller) ShortenCountdown(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.settings.State != StateCountingDown {
		c.mu.Unlock()
		return false, nil
	}
	c.settings.SecondsLeft = MinCountdown
	c.mu.Unlock()

	c.logger.Info("shortening countdown", zap.Int("seconds_left", MinCountdown))
	if err := c.runtime.SetRoundSecondsLeft(ctx, MinCountdown); err != nil {
		return true, fmt.Errorf("shortening countdown: %w", err)
	}
	return true, nil
}

// SetCollision records and pushes the player-collision flag.
func (c *Controller) SetCollision(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	c.settings.PlayerCollision = enabled
	c.mu.Unlock()

	if err := c.runtime.SetPlayerCollision(ctx, enabled); err != nil {
		return fmt.Errorf("setting collision: %w", err)
	}
	return nil
}

// SetModifiers replaces the per-player modifier set enforced from the next
// tick on.
func (c *Controller) SetModifiers(mods player.Modifiers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Modifiers = mods
}

// SetMapRotation clears the map rotation and replaces it with maps.
//
// Postcondition: Returns ErrEmptyRotation, changing nothing, if maps is empty.
func (c *Controller) SetMapRotation(ctx context.Context, maps []string) error {
	if len(maps) == 0 {
		return fmt.Errorf("maps: %w", ErrEmptyRotation)
	}
	c.mu.Lock()
	c.settings.Maps = append([]string(nil), maps...)
	c.mu.Unlock()
	return c.pushMaps(ctx, maps)
}

// SetGamemodeRotation clears the gamemode rotation and replaces it with modes.
//
// Postcondition: Returns ErrEmptyRotation, changing nothing, if modes is empty.
func (c *Controller) SetGamemodeRotation(ctx context.Context, modes []string) error {
	if len(modes) == 0 {
		return fmt.Errorf("gamemodes: %w", ErrEmptyRotation)
	}
	c.mu.Lock()
	c.settings.Gamemodes = append([]string(nil), modes...)
	c.mu.Unlock()
	return c.pushGamemodes(ctx, modes)
}

func (c *Controller) pushMaps(ctx context.Context, maps []string) error {
	if err := c.runtime.ClearMapRotation(ctx); err != nil {
		return fmt.Errorf("clearing map rotation: %w", err)
	}
	for _, m := range maps {
		if err := c.runtime.AddMapToRotation(ctx, m); err != nil {
			return fmt.Errorf("adding map %q: %w", m, err)
		}
	}
	return nil
}

func (c *Controller) pushGamemodes(ctx context.Context, modes []string) error {
	if err := c.runtime.ClearGamemodeRotation(ctx); err != nil {
		return fmt.Errorf("clearing gamemode rotation: %w", err)
	}
	for _, m := range modes {
		if err := c.runtime.AddGamemodeToRotation(ctx, m); err != nil {
			return fmt.Errorf("adding gamemode %q: %w", m, err)
		}
	}
	return nil
}

// OnTick re-asserts the collision flag and the modifier set of every
// tracked player. It has no cumulative effect and may run at any rate.
//
// Postcondition: Every player is attempted even if some pushes fail; the
// failures are returned joined.
func (c *Controller) OnTick(ctx context.Context) error {
	c.mu.Lock()
	collision := c.settings.PlayerCollision
	mods := c.settings.Modifiers
	c.mu.Unlock()

	var errs []error
	if err := c.runtime.SetPlayerCollision(ctx, collision); err != nil {
		errs = append(errs, fmt.Errorf("setting collision: %w", err))
	}
	for _, id := range c.roster.IDs() {
		if err := c.runtime.SetModifiers(ctx, id, mods); err != nil {
			errs = append(errs, fmt.Errorf("setting modifiers for %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Settings returns a copy of the current configuration.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.clone()
}

// State returns the current round state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.State
}
