package gameserver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/game/gameerr"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/movement"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/session"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// Move walks the player along their current pathway.
//
// Precondition: direction is "forward" or "backward"; 0 <= steps <= MaxSteps.
// Postcondition: On success the new position is persisted and, when the
// player moved on an encounter-bearing location, any rolled monster is the
// user's pending encounter.
func (s *Service) Move(ctx context.Context, userID int64, direction string, steps int) (MoveResult, error) {
	dir, err := movement.ParseDirection(direction)
	if err != nil {
		return MoveResult{}, err
	}
	if s.rules.MaxSteps > 0 && steps > s.rules.MaxSteps {
		return MoveResult{}, gameerr.ErrInvalidSteps.With("at most %d steps per move, got %d", s.rules.MaxSteps, steps)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	if err := s.ensureNoBattle(ctx, userID); err != nil {
		return MoveResult{}, err
	}
	p, err := s.loadPlayer(ctx, userID, "load_player")
	if err != nil {
		return MoveResult{}, err
	}
	from := p.Position.Normalize()
	res, err := movement.Resolve(s.graph, movement.Start{
		Category:   from.LocationType,
		LocationID: from.LocationID,
		Position:   from.Position,
	}, steps, dir)
	if err != nil {
		if gameerr.KindOf(err) == gameerr.KindConfiguration {
			s.logger.Error("player stands on unknown location",
				zap.Int64("user_id", userID),
				zap.String("location_id", from.LocationID),
				zap.Error(err),
			)
		}
		return MoveResult{}, err
	}

	next := from
	next.Position = res.NewPosition
	if res.StepsMoved > 0 {
		if err := s.relocate(ctx, userID, from, next); err != nil {
			return MoveResult{}, err
		}
	}
	out := s.moveResult(res, next)

	if res.StepsMoved > 0 && s.rollsEncounters(from.LocationType) {
		if m := s.encounters.Roll(from.LocationID, p.Level); m != nil {
			s.sessions.SetEncounter(userID, session.Encounter{Monster: *m, LocationID: from.LocationID})
			ui := monster.ToUIShape(*m)
			out.Encounter = &ui
			out.Message = fmt.Sprintf("A wild %s %s appears!", m.Emoji, m.Name)
		}
	}
	return out, nil
}

// MoveToConnection follows connID from the player's freshly loaded position.
//
// Postcondition: On success the player stands on the connection's target at
// its arrival position. Every failed check returns a typed error and writes nothing.
func (s *Service) MoveToConnection(ctx context.Context, userID int64, connID string) (MoveResult, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	if err := s.ensureNoBattle(ctx, userID); err != nil {
		return MoveResult{}, err
	}
	conn, ok := s.graph.Connection(connID)
	if !ok {
		return MoveResult{}, gameerr.ErrConnectionNotFound.With("no connection %q", connID)
	}
	return s.follow(ctx, userID, conn)
}

// MoveToDirection follows the visible connection leading in direction.
//
// Postcondition: Returns gameerr.ErrInvalidDirection for a direction no
// connection can have.
func (s *Service) MoveToDirection(ctx context.Context, userID int64, direction string) (MoveResult, error) {
	dir, err := s.graph.ParseDirection(direction)
	if err != nil {
		return MoveResult{}, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	if err := s.ensureNoBattle(ctx, userID); err != nil {
		return MoveResult{}, err
	}
	pos, err := s.freshPosition(ctx, userID)
	if err != nil {
		return MoveResult{}, err
	}
	conn, ok := pick(s.graph.ConnectionsFrom(pos.LocationID, &pos.Position), dir)
	if !ok {
		return MoveResult{}, gameerr.ErrConnectionNotFound.With("there is no way %s from here", dir)
	}
	return s.follow(ctx, userID, conn)
}

// MoveToBranch takes one of the options at the branch the player stands on.
//
// Postcondition: Returns gameerr.ErrPositionMismatch when the player is not on a branch.
func (s *Service) MoveToBranch(ctx context.Context, userID int64, direction string) (MoveResult, error) {
	dir, err := s.graph.ParseDirection(direction)
	if err != nil {
		return MoveResult{}, err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	if err := s.ensureNoBattle(ctx, userID); err != nil {
		return MoveResult{}, err
	}
	pos, err := s.freshPosition(ctx, userID)
	if err != nil {
		return MoveResult{}, err
	}
	if !pos.LocationType.IsPathway() || !s.graph.HasBranchAt(pos.LocationID, pos.Position) {
		return MoveResult{}, gameerr.ErrPositionMismatch.With("there is no fork here")
	}
	conn, ok := pick(s.graph.BranchOptions(pos.LocationID, pos.Position), dir)
	if !ok {
		return MoveResult{}, gameerr.ErrConnectionNotFound.With("the fork has no %s path", dir)
	}
	return s.follow(ctx, userID, conn)
}

// Position returns the player's position and what can be reached from it.
// It reads through the session cache.
func (s *Service) Position(ctx context.Context, userID int64) (PositionView, error) {
	pos, err := s.sessions.Position(ctx, userID, s.players.Position)
	if err != nil {
		return PositionView{}, s.fail(err, userID, "load_position")
	}
	loc, err := s.graph.GetLocation(pos.LocationType, pos.LocationID)
	if err != nil {
		s.logger.Error("player stands on unknown location",
			zap.Int64("user_id", userID),
			zap.String("location_id", pos.LocationID),
			zap.Error(err),
		)
		return PositionView{}, err
	}
	view := PositionView{
		Position:    pos,
		Location:    locationView(loc),
		Connections: s.connectionViews(s.graph.ConnectionsFrom(pos.LocationID, &pos.Position)),
	}
	if pos.LocationType.IsPathway() {
		view.HasBranch = s.graph.HasBranchAt(pos.LocationID, pos.Position)
		if a, ok := loc.SpecialActionAt(pos.Position); ok {
			view.SpecialAction = specialActionView(&a)
		}
	}
	return view, nil
}

// Connections lists the connections visible from the player's position.
func (s *Service) Connections(ctx context.Context, userID int64) ([]ConnectionView, error) {
	view, err := s.Position(ctx, userID)
	if err != nil {
		return nil, err
	}
	return view.Connections, nil
}

// follow re-validates conn against the stored position and moves the player.
// Checks run in order: source location, visibility, enabled, target exists.
func (s *Service) follow(ctx context.Context, userID int64, conn world.Connection) (MoveResult, error) {
	from, err := s.freshPosition(ctx, userID)
	if err != nil {
		return MoveResult{}, err
	}
	if conn.SourceLocationID != from.LocationID {
		return MoveResult{}, gameerr.ErrLocationMismatch.With("connection %q leaves %s, you are in %s", conn.ID, conn.SourceLocationID, from.LocationID)
	}
	if !world.IsVisible(conn, from.Position) {
		return MoveResult{}, gameerr.ErrPositionMismatch.With("connection %q is not reachable from position %d", conn.ID, from.Position)
	}
	if !conn.Enabled {
		return MoveResult{}, gameerr.ErrConnectionDisabled
	}
	target, ok := s.graph.Location(conn.TargetLocationID)
	if !ok {
		s.logger.Error("connection target missing",
			zap.String("connection_id", conn.ID),
			zap.String("target", conn.TargetLocationID),
		)
		return MoveResult{}, gameerr.ErrTargetMissing.With("connection %q leads to unknown location %q", conn.ID, conn.TargetLocationID)
	}

	next := player.Position{
		LocationType: target.Category,
		LocationID:   target.ID,
		Position:     conn.ArrivalPosition(),
	}.Normalize()
	if err := s.relocate(ctx, userID, from, next); err != nil {
		return MoveResult{}, err
	}
	s.logger.Debug("player followed connection",
		zap.Int64("user_id", userID),
		zap.String("connection_id", conn.ID),
		zap.String("location_id", next.LocationID),
		zap.Int("position", next.Position),
	)
	return s.arrival(next, conn), nil
}

// arrival describes the player's state right after following conn.
func (s *Service) arrival(pos player.Position, conn world.Connection) MoveResult {
	out := MoveResult{
		Success:       true,
		Position:      pos,
		StartPosition: pos.Position,
		StopReason:    string(movement.StopNone),
		Message:       conn.ActionLabel,
	}
	if pos.LocationType.IsPathway() {
		out.CanMoveToNext = pos.Position >= world.MaxPosition
		out.CanMoveToPrevious = pos.Position <= world.MinPosition
		if s.graph.HasBranchAt(pos.LocationID, pos.Position) {
			out.HasBranch = true
			out.BranchOptions = s.connectionViews(s.graph.BranchOptions(pos.LocationID, pos.Position))
		}
		if a, ok := s.graph.SpecialActionAt(pos.LocationID, pos.Position); ok {
			out.SpecialAction = specialActionView(&a)
		}
	}
	return out
}

// freshPosition bypasses the session cache.
func (s *Service) freshPosition(ctx context.Context, userID int64) (player.Position, error) {
	pos, err := s.players.Position(ctx, userID)
	if err != nil {
		return player.Position{}, s.fail(err, userID, "load_position")
	}
	return pos, nil
}

// relocate compare-and-sets the position. The cached position and any
// pending encounter are dropped whether or not the write lands.
func (s *Service) relocate(ctx context.Context, userID int64, from, next player.Position) error {
	err := s.players.UpdatePosition(ctx, userID, from, next)
	s.sessions.Purge(userID)
	s.sessions.ClearEncounter(userID)
	if err != nil {
		return s.fail(err, userID, "update_position")
	}
	return nil
}

func (s *Service) rollsEncounters(c world.Category) bool {
	return c == world.Road || (c == world.Dungeon && s.rules.EncountersInDungeons)
}

// pick returns the first connection leading in d, preferring enabled ones.
func pick(conns []world.Connection, d world.Direction) (world.Connection, bool) {
	var (
		found world.Connection
		ok    bool
	)
	for _, c := range conns {
		if c.Direction != d {
			continue
		}
		if c.Enabled {
			return c, true
		}
		if !ok {
			found, ok = c, true
		}
	}
	return found, ok
}
