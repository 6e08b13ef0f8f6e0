package battle_test

import (
	"context"
	"slices"
	"sync"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/storage"
)

// memStore is an in-memory BattleStore with a PlayerStore view.
type memStore struct {
	mu       sync.Mutex
	battles  map[int64]battle.ActiveBattle
	players  map[int64]player.Player
	skills   map[int64][]string
	history  []battle.HistoryRecord
	skillErr error
	writeErr error
}

func newMemStore() *memStore {
	return &memStore{
		battles: make(map[int64]battle.ActiveBattle),
		players: make(map[int64]player.Player),
		skills:  make(map[int64][]string),
	}
}

func cloneBattle(ab battle.ActiveBattle) *battle.ActiveBattle {
	ab.Log = slices.Clone(ab.Log)
	ab.Character.Skills = slices.Clone(ab.Character.Skills)
	return &ab
}

func (s *memStore) Get(_ context.Context, userID int64) (*battle.ActiveBattle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ab, ok := s.battles[userID]
	if !ok {
		return nil, storage.ErrBattleNotFound
	}
	return cloneBattle(ab), nil
}

func (s *memStore) Create(_ context.Context, ab *battle.ActiveBattle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if _, ok := s.battles[ab.UserID]; ok {
		return storage.ErrBattleExists
	}
	s.battles[ab.UserID] = *cloneBattle(*ab)
	return nil
}

func (s *memStore) Update(_ context.Context, ab *battle.ActiveBattle, expectedTurn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	cur, ok := s.battles[ab.UserID]
	if !ok {
		return storage.ErrBattleNotFound
	}
	if cur.Turn != expectedTurn {
		return storage.ErrStaleWrite
	}
	s.battles[ab.UserID] = *cloneBattle(*ab)
	return nil
}

func (s *memStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.battles, userID)
	return nil
}

func (s *memStore) Complete(_ context.Context, c battle.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	cur, ok := s.battles[c.UserID]
	if !ok {
		return storage.ErrBattleNotFound
	}
	if cur.Turn != c.ExpectedTurn {
		return storage.ErrStaleWrite
	}
	s.players[c.UserID] = *c.Player
	c.History.ID = int64(len(s.history) + 1)
	s.history = append(s.history, c.History)
	delete(s.battles, c.UserID)
	return nil
}

func (s *memStore) player(userID int64) player.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[userID]
}

func (s *memStore) hasBattle(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.battles[userID]
	return ok
}

// memPlayers is the PlayerStore view over memStore.
type memPlayers struct{ s *memStore }

func (p memPlayers) Get(_ context.Context, userID int64) (*player.Player, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	pl, ok := p.s.players[userID]
	if !ok {
		return nil, storage.ErrPlayerNotFound
	}
	return &pl, nil
}

func (p memPlayers) SkillIDs(_ context.Context, userID int64) ([]string, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if p.s.skillErr != nil {
		return nil, p.s.skillErr
	}
	return slices.Clone(p.s.skills[userID]), nil
}

type purgeRecorder struct {
	mu     sync.Mutex
	purged []int64
}

func (r *purgeRecorder) Purge(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purged = append(r.purged, userID)
}
