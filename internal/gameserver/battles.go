package gameserver

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/gameerr"
)

// StartBattle fights the user's pending encounter.
//
// Precondition: a monster is pending for the user; monsterID is empty or
// names that monster.
// Postcondition: On success the pending encounter is consumed.
func (s *Service) StartBattle(ctx context.Context, userID int64, monsterID string) (battle.Result, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	enc, ok := s.sessions.PendingEncounter(userID)
	if !ok {
		return battle.Result{}, gameerr.ErrNoEncounter
	}
	if monsterID != "" && monsterID != enc.Monster.ID {
		return battle.Result{}, gameerr.ErrEncounterMismatch.With("%q is not waiting for you, %q is", monsterID, enc.Monster.ID)
	}
	p, err := s.loadPlayer(ctx, userID, "load_player")
	if err != nil {
		return battle.Result{}, err
	}
	if p.Position.LocationID != enc.LocationID {
		s.sessions.ClearEncounter(userID)
		return battle.Result{}, gameerr.ErrNoEncounter.With("the %s is no longer here", enc.Monster.Name)
	}

	res, err := s.battles.Start(ctx, p, enc.Monster)
	if err != nil {
		return battle.Result{}, err
	}
	s.sessions.TakeEncounter(userID)
	if enc.Boss {
		s.logger.Info("boss battle started",
			zap.Int64("user_id", userID),
			zap.String("battle_id", res.BattleID),
			zap.String("monster", enc.Monster.ID),
		)
	}
	return res, nil
}

// Attack performs a basic attack in the user's battle.
func (s *Service) Attack(ctx context.Context, userID int64) (battle.Result, error) {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.battles.Attack(ctx, userID)
}

// Defend braces against the monster's next attack.
func (s *Service) Defend(ctx context.Context, userID int64) (battle.Result, error) {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.battles.Defend(ctx, userID)
}

// Escape tries to flee the user's battle.
func (s *Service) Escape(ctx context.Context, userID int64) (battle.Result, error) {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.battles.Escape(ctx, userID)
}

// UseSkill casts skillID in the user's battle.
func (s *Service) UseSkill(ctx context.Context, userID int64, skillID string) (battle.Result, error) {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.battles.UseSkill(ctx, userID, skillID)
}

// EndBattle force-ends the user's battle without payouts and drops any
// pending encounter. It succeeds when there is no battle.
func (s *Service) EndBattle(ctx context.Context, userID int64) (battle.Result, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	res, err := s.battles.ForceEnd(ctx, userID)
	if err != nil {
		return battle.Result{}, err
	}
	s.sessions.ClearEncounter(userID)
	return res, nil
}

// CurrentBattle returns the user's in-progress battle.
func (s *Service) CurrentBattle(ctx context.Context, userID int64) (battle.Result, error) {
	return s.battles.Current(ctx, userID)
}

// History lists the user's finished battles, newest first.
// A limit <= 0 means DefaultHistoryLimit; limits above MaxHistoryLimit are capped.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	records, err := s.history.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, s.fail(err, userID, "list_history")
	}
	out := make([]HistoryEntry, 0, len(records))
	for _, r := range records {
		out = append(out, historyEntry(r))
	}
	return out, nil
}
