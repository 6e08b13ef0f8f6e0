package gameserver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/game/gameerr"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/session"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/storage"
)

// PerformSpecialAction triggers the event at the player's current position.
//
// Postcondition: rest refills HP/MP/SP, treasure adds its gold once per user, teleport
// relocates the player, boss makes the boss the pending encounter and
// facility only reports its label. Returns gameerr.ErrNoSpecialAction when
// the position has no event.
func (s *Service) PerformSpecialAction(ctx context.Context, userID int64) (SpecialActionResult, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	if err := s.ensureNoBattle(ctx, userID); err != nil {
		return SpecialActionResult{}, err
	}
	p, err := s.loadPlayer(ctx, userID, "load_player")
	if err != nil {
		return SpecialActionResult{}, err
	}
	pos := p.Position.Normalize()
	if !pos.LocationType.IsPathway() {
		return SpecialActionResult{}, gameerr.ErrNoSpecialAction
	}
	a, ok := s.graph.SpecialActionAt(pos.LocationID, pos.Position)
	if !ok {
		return SpecialActionResult{}, gameerr.ErrNoSpecialAction
	}

	out := SpecialActionResult{Type: string(a.Type)}
	switch a.Type {
	case world.ActionRest:
		p.Refill()
		if err := s.players.SaveVitals(ctx, p); err != nil {
			return SpecialActionResult{}, s.fail(err, userID, "save_vitals")
		}
		out.Message = fmt.Sprintf("%s. You rest and recover fully.", a.Label)

	case world.ActionTreasure:
		total, err := s.players.ClaimTreasure(ctx, userID, pos.LocationID, pos.Position, a.Gold)
		if errors.Is(err, storage.ErrTreasureClaimed) {
			return SpecialActionResult{}, gameerr.ErrNoSpecialAction.With("%s lies empty.", a.Label)
		}
		if err != nil {
			return SpecialActionResult{}, s.fail(err, userID, "claim_treasure")
		}
		p.Gold = total
		out.GoldGained = a.Gold
		out.Message = fmt.Sprintf("%s. You find %d gold.", a.Label, a.Gold)

	case world.ActionTeleport:
		target, ok := s.graph.Location(a.TargetLocation)
		if !ok {
			s.logger.Error("teleport target missing",
				zap.String("location_id", pos.LocationID),
				zap.Int("position", pos.Position),
				zap.String("target", a.TargetLocation),
			)
			return SpecialActionResult{}, gameerr.ErrTargetMissing.With("teleport leads to unknown location %q", a.TargetLocation)
		}
		next := player.Position{LocationType: target.Category, LocationID: target.ID, Position: a.TargetPosition}.Normalize()
		if err := s.relocate(ctx, userID, pos, next); err != nil {
			return SpecialActionResult{}, err
		}
		p.Position = next
		out.Message = fmt.Sprintf("%s. You arrive at %s.", a.Label, target.Name)

	case world.ActionBoss:
		snap, ok := s.monsters.Spawn(a.Monster)
		if !ok {
			s.logger.Error("boss missing from monster catalog",
				zap.String("location_id", pos.LocationID),
				zap.String("monster", a.Monster),
			)
			return SpecialActionResult{}, gameerr.ErrTargetMissing.With("boss %q is not in the monster catalog", a.Monster)
		}
		snap.HP = snap.MaxHP
		s.sessions.SetEncounter(userID, session.Encounter{Monster: snap, Boss: true, LocationID: pos.LocationID})
		ui := monster.ToUIShape(snap)
		out.Encounter = &ui
		out.Message = fmt.Sprintf("%s %s blocks your way!", snap.Emoji, snap.Name)

	default:
		out.Message = a.Label
	}

	s.logger.Info("special action performed",
		zap.Int64("user_id", userID),
		zap.String("type", string(a.Type)),
		zap.String("location_id", pos.LocationID),
		zap.Int("position", pos.Position),
	)
	out.Player = p
	return out, nil
}
