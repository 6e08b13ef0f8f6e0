// Package gameserver orchestrates movement, encounters and battles for each
// user and exposes them over gRPC.
package gameserver

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/game/encounter"
	"github.com/cory-johannsen/wayfarer/internal/game/gameerr"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/session"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/storage"
)

// PlayerStore is the player persistence the Service reads and writes.
// Implementations return the storage package sentinels.
type PlayerStore interface {
	battle.PlayerStore
	// Create stores p and its starting skills atomically.
	Create(ctx context.Context, p *player.Player, skillIDs ...string) error
	Position(ctx context.Context, userID int64) (player.Position, error)
	// UpdatePosition writes next only if the stored position still equals expected.
	UpdatePosition(ctx context.Context, userID int64, expected, next player.Position) error
	SaveVitals(ctx context.Context, p *player.Player) error
	// ClaimTreasure adds gold unless the user already looted that treasure,
	// returning the new total or storage.ErrTreasureClaimed.
	ClaimTreasure(ctx context.Context, userID int64, locationID string, position, gold int) (int, error)
}

// HistoryStore reads finished battles.
type HistoryStore interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]battle.HistoryRecord, error)
}

// Service is the authoritative game API. Every operation takes the acting
// user explicitly; mutating operations are serialised per user.
type Service struct {
	graph      *world.Graph
	monsters   encounter.Spawner
	players    PlayerStore
	history    HistoryStore
	battles    *battle.Engine
	encounters *encounter.Engine
	sessions   *session.Manager
	roller     *dice.Roller
	rules      Rules
	logger     *zap.Logger
	locks      *userLocks
	now        func() time.Time
}

// NewService creates a Service.
//
// Precondition: all arguments must be non-nil; battles must have been built
// with sessions as its invalidator so battle ends purge cached positions.
func NewService(
	graph *world.Graph,
	monsters encounter.Spawner,
	players PlayerStore,
	history HistoryStore,
	battles *battle.Engine,
	encounters *encounter.Engine,
	sessions *session.Manager,
	roller *dice.Roller,
	rules Rules,
	logger *zap.Logger,
) *Service {
	return &Service{
		graph:      graph,
		monsters:   monsters,
		players:    players,
		history:    history,
		battles:    battles,
		encounters: encounters,
		sessions:   sessions,
		roller:     roller,
		rules:      rules,
		logger:     logger,
		locks:      newUserLocks(),
		now:        time.Now,
	}
}

// CreatePlayer registers a new level 1 player in the start town and grants
// the starter skills.
//
// Postcondition: Returns the stored player, or gameerr.ErrPlayerExists.
func (s *Service) CreatePlayer(ctx context.Context, userID int64, name string) (*player.Player, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	if _, err := s.graph.GetLocation(world.Town, s.rules.StartLocation); err != nil {
		s.logger.Error("start location missing from graph",
			zap.String("location_id", s.rules.StartLocation),
			zap.Error(err),
		)
		return nil, err
	}
	p := player.New(userID, name, s.rules.StartLocation)
	if err := s.players.Create(ctx, p, s.rules.StarterSkills...); err != nil {
		return nil, s.fail(err, userID, "create_player")
	}
	s.sessions.Forget(userID)
	s.logger.Info("player created",
		zap.Int64("user_id", userID),
		zap.String("name", name),
		zap.Strings("skills", s.rules.StarterSkills),
	)
	return p, nil
}

// Player returns the authoritative player record.
func (s *Service) Player(ctx context.Context, userID int64) (*player.Player, error) {
	return s.loadPlayer(ctx, userID, "load_player")
}

// RollDice rolls the movement dice and adds agility / BonusDivisor.
// The roll is remembered for the user; nothing is written to the store.
func (s *Service) RollDice(ctx context.Context, userID int64) (RollResult, error) {
	p, err := s.loadPlayer(ctx, userID, "load_player")
	if err != nil {
		return RollResult{}, err
	}
	roll := s.roller.Roll(s.rules.MovementDice)
	bonus := 0
	if s.rules.BonusDivisor > 0 {
		bonus = p.Agility / s.rules.BonusDivisor
	}
	res := RollResult{
		Rolls:         slices.Clone(roll.Dice),
		BaseTotal:     roll.Total(),
		Bonus:         bonus,
		FinalMovement: roll.Total() + bonus,
	}
	s.sessions.SetLastRoll(userID, session.Roll{
		Dice:          res.Rolls,
		BaseTotal:     res.BaseTotal,
		Bonus:         res.Bonus,
		FinalMovement: res.FinalMovement,
		RolledAt:      s.now(),
	})
	return res, nil
}

func (s *Service) loadPlayer(ctx context.Context, userID int64, op string) (*player.Player, error) {
	p, err := s.players.Get(ctx, userID)
	if err != nil {
		return nil, s.fail(err, userID, op)
	}
	return p, nil
}

// ensureNoBattle refuses world actions while the user is fighting.
func (s *Service) ensureNoBattle(ctx context.Context, userID int64) error {
	_, err := s.battles.Current(ctx, userID)
	switch {
	case err == nil:
		return gameerr.ErrBattleInProgress.With("finish your battle first")
	case errors.Is(err, gameerr.ErrNoActiveBattle):
		return nil
	default:
		return err
	}
}

// fail converts a store or engine error into the error returned to callers.
// Unclassified errors are logged and surface as gameerr.ErrInternal.
func (s *Service) fail(err error, userID int64, op string) error {
	switch {
	case errors.Is(err, storage.ErrPlayerNotFound):
		return gameerr.ErrPlayerNotFound
	case errors.Is(err, storage.ErrPlayerExists):
		return gameerr.ErrPlayerExists
	case errors.Is(err, storage.ErrStaleWrite):
		return gameerr.ErrPositionConflict
	}
	var ge *gameerr.Error
	if errors.As(err, &ge) {
		return err
	}
	s.logger.Error("game operation failed",
		zap.Int64("user_id", userID),
		zap.String("operation", op),
		zap.Error(err),
	)
	return gameerr.ErrInternal.Wrap(err)
}
