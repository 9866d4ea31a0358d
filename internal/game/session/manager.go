// Package session tracks per-player state for the players connected to one
// game-server session.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cory-johannsen/arenactl/internal/game/player"
)

// ErrPlayerNotFound is returned when an operation names an identity that
// never joined or has already disconnected.
var ErrPlayerNotFound = errors.New("player not found")

// Player is a copy of a connected player's state.
type Player struct {
	// ID is the immutable session identity.
	ID player.ID
	// Name is the display name reported when the player connected.
	Name string
	// Kills counts eliminations credited to the player.
	Kills int
	// Deaths counts the player's own eliminations, self-inflicted included.
	Deaths int
	// IsAdmin gates admin-only chat commands.
	IsAdmin bool
	// Stats is the progression admitted at join, after overrides.
	Stats player.Stats
	// Loadout is the loadout of the most recent spawn.
	Loadout player.Loadout
	// HasLoadout reports whether the player has spawned yet.
	HasLoadout bool
	// JoinedAt is when the record was created.
	JoinedAt time.Time
}

// KillOutcome describes a recorded elimination and the follow-up effects
// the caller must issue: the victim is always eliminated; the killer is
// healed unless it was a self-elimination.
type KillOutcome struct {
	Killer   Player
	Victim   Player
	SelfKill bool
}

// HealKiller reports whether the killer earned a full heal.
func (o KillOutcome) HealKiller() bool {
	return !o.SelfKill
}

type record struct {
	mu sync.Mutex
	p  Player
}

// Manager owns every Player record of one session.
// All methods are safe for concurrent use; mutations of one player are
// serialized by that player's lock.
type Manager struct {
	mu      sync.RWMutex
	players map[player.ID]*record
	now     func() time.Time
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		players: make(map[player.ID]*record),
		now:     time.Now,
	}
}

// Join creates the record for id with zeroed counters, replacing any stale
// record left for the same identity.
//
// Postcondition: Returns a copy of the created Player.
func (m *Manager) Join(id player.ID, stats player.Stats, isAdmin bool) Player {
	rec := &record{p: Player{
		ID:       id,
		IsAdmin:  isAdmin || stats.Roles.Has(player.RoleAdmin),
		Stats:    stats,
		JoinedAt: m.now(),
	}}

	m.mu.Lock()
	m.players[id] = rec
	m.mu.Unlock()

	return rec.p
}

// Disconnect removes the record for id.
//
// Postcondition: Returns ErrPlayerNotFound if id was not tracked.
func (m *Manager) Disconnect(id player.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.players[id]; !ok {
		return fmt.Errorf("disconnecting %d: %w", id, ErrPlayerNotFound)
	}
	delete(m.players, id)
	return nil
}

// Get returns a copy of the player's state.
//
// Postcondition: Returns ErrPlayerNotFound if id is not tracked.
func (m *Manager) Get(id player.ID) (Player, error) {
	rec, err := m.lookup(id)
	if err != nil {
		return Player{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.p, nil
}

// Rename records the display name reported by the runtime.
func (m *Manager) Rename(id player.ID, name string) (Player, error) {
	return m.update(id, func(p *Player) { p.Name = name })
}

// GrantAdmin sets the admin flag for id.
func (m *Manager) GrantAdmin(id player.ID) (Player, error) {
	return m.update(id, func(p *Player) { p.IsAdmin = true })
}

// RecordSpawnLoadout stores the loadout of the player's latest spawn.
func (m *Manager) RecordSpawnLoadout(id player.ID, loadout player.Loadout) (Player, error) {
	return m.update(id, func(p *Player) {
		p.Loadout = loadout
		p.HasLoadout = true
	})
}

// RecordKill credits an elimination. A self-elimination only adds a death;
// otherwise the killer gains a kill and the victim a death, both under
// their locks so the pair is updated atomically.
//
// Postcondition: Returns ErrPlayerNotFound, and changes nothing, if either
// identity is not tracked.
func (m *Manager) RecordKill(killerID, victimID player.ID) (KillOutcome, error) {
	if killerID == victimID {
		p, err := m.update(victimID, func(p *Player) { p.Deaths++ })
		if err != nil {
			return KillOutcome{}, fmt.Errorf("recording self kill: %w", err)
		}
		return KillOutcome{Killer: p, Victim: p, SelfKill: true}, nil
	}

	killer, err := m.lookup(killerID)
	if err != nil {
		return KillOutcome{}, fmt.Errorf("recording kill: killer: %w", err)
	}
	victim, err := m.lookup(victimID)
	if err != nil {
		return KillOutcome{}, fmt.Errorf("recording kill: victim: %w", err)
	}

	// Lock in identity order so two concurrent kills between the same pair
	// cannot deadlock.
	first, second := killer, victim
	if victimID < killerID {
		first, second = victim, killer
	}
	first.mu.Lock()
	second.mu.Lock()
	killer.p.Kills++
	victim.p.Deaths++
	out := KillOutcome{Killer: killer.p, Victim: victim.p}
	second.mu.Unlock()
	first.mu.Unlock()

	return out, nil
}

// IDs returns the identities of all tracked players in ascending order.
func (m *Manager) IDs() []player.ID {
	m.mu.RLock()
	ids := make([]player.ID, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot returns copies of all tracked players ordered by identity.
func (m *Manager) Snapshot() []Player {
	ids := m.IDs()
	out := make([]Player, 0, len(ids))
	for _, id := range ids {
		if p, err := m.Get(id); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Count returns the number of tracked players.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}

func (m *Manager) lookup(id player.ID) (*record, error) {
	m.mu.RLock()
	rec, ok := m.players[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("player %d: %w", id, ErrPlayerNotFound)
	}
	return rec, nil
}

func (m *Manager) update(id player.ID, fn func(*Player)) (Player, error) {
	rec, err := m.lookup(id)
	if err != nil {
		return Player{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	fn(&rec.p)
	return rec.p, nil
}
