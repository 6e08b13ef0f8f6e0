// Package session holds per-user conveniences that live only in process
// memory: a cached copy of the player's position, the last movement roll and
// the monster waiting to be fought.
//
// Nothing here is authoritative. The cached position is read-through and
// purged after every state-changing operation; the store always wins.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
)

// Roll is a remembered movement dice roll.
type Roll struct {
	Dice          []int
	BaseTotal     int
	Bonus         int
	FinalMovement int
	RolledAt      time.Time
}

// Encounter is a monster waiting for the player to accept battle.
type Encounter struct {
	Monster monster.Snapshot
	// Boss is true when the encounter came from a boss special action.
	Boss bool
	// LocationID is where the encounter happened.
	LocationID string
}

// PlayerSession is the cached state of one user.
type PlayerSession struct {
	UserID    int64
	Position  *player.Position
	LastRoll  *Roll
	Encounter *Encounter

	// generation counts purges. A load only caches its result if no purge
	// happened while it ran.
	generation uint64
}

// PositionLoader reads a user's position from the authoritative store.
type PositionLoader func(ctx context.Context, userID int64) (player.Position, error)

// Manager tracks sessions for all users.
// All methods are safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*PlayerSession
}

// NewManager creates an empty session Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]*PlayerSession)}
}

func (m *Manager) session(userID int64) *PlayerSession {
	s, ok := m.sessions[userID]
	if !ok {
		s = &PlayerSession{UserID: userID}
		m.sessions[userID] = s
	}
	return s
}

// Position returns the cached position, loading and caching it on a miss.
//
// Postcondition: a load error is returned unchanged and nothing is cached. A
// load that overlapped a Purge or Forget returns what it read but leaves the
// cache empty.
func (m *Manager) Position(ctx context.Context, userID int64, load PositionLoader) (player.Position, error) {
	m.mu.Lock()
	s := m.session(userID)
	if s.Position != nil {
		pos := *s.Position
		m.mu.Unlock()
		return pos, nil
	}
	gen := s.generation
	m.mu.Unlock()

	pos, err := load(ctx, userID)
	if err != nil {
		return player.Position{}, err
	}
	m.mu.Lock()
	if cur, ok := m.sessions[userID]; ok && cur == s && s.generation == gen {
		s.Position = &pos
	}
	m.mu.Unlock()
	return pos, nil
}

// Purge drops the cached position so the next read goes to the store.
func (m *Manager) Purge(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		s.Position = nil
		s.generation++
	}
}

// CachedPosition reports the cached position without loading.
func (m *Manager) CachedPosition(userID int64) (player.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok || s.Position == nil {
		return player.Position{}, false
	}
	return *s.Position, true
}

// SetLastRoll remembers the user's latest movement roll.
func (m *Manager) SetLastRoll(userID int64, r Roll) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session(userID).LastRoll = &r
}

// LastRoll returns the user's latest movement roll.
func (m *Manager) LastRoll(userID int64) (Roll, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok || s.LastRoll == nil {
		return Roll{}, false
	}
	return *s.LastRoll, true
}

// SetEncounter replaces the user's pending encounter.
func (m *Manager) SetEncounter(userID int64, e Encounter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session(userID).Encounter = &e
}

// PendingEncounter returns the pending encounter without consuming it.
func (m *Manager) PendingEncounter(userID int64) (Encounter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok || s.Encounter == nil {
		return Encounter{}, false
	}
	return *s.Encounter, true
}

// TakeEncounter returns and clears the pending encounter.
func (m *Manager) TakeEncounter(userID int64) (Encounter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok || s.Encounter == nil {
		return Encounter{}, false
	}
	e := *s.Encounter
	s.Encounter = nil
	return e, true
}

// ClearEncounter drops any pending encounter.
func (m *Manager) ClearEncounter(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		s.Encounter = nil
	}
}

// Forget removes everything held for the user.
func (m *Manager) Forget(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Count returns the number of tracked users.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
