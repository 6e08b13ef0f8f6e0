// Package movement resolves dice-driven travel along pathway locations.
//
// Resolution is a pure function of the graph, the starting position and the
// requested steps. It never touches storage; callers persist the result.
package movement

import (
	"github.com/cory-johannsen/wayfarer/internal/game/gameerr"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// Direction is the way a player travels along a pathway axis.
type Direction int

// Travel directions.
const (
	Forward Direction = iota
	Backward
)

// String returns "forward" or "backward".
func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// sign returns +1 for Forward and -1 for Backward.
func (d Direction) sign() int {
	if d == Backward {
		return -1
	}
	return 1
}

// ParseDirection converts "forward" or "backward" into a Direction.
//
// Postcondition: Returns gameerr.ErrInvalidDirection for any other input.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "forward":
		return Forward, nil
	case "backward":
		return Backward, nil
	default:
		return Forward, gameerr.ErrInvalidDirection.With("direction must be forward or backward, got %q", s)
	}
}

// StopReason explains where and why movement ended.
type StopReason string

// Stop reasons.
const (
	StopNone          StopReason = "none"
	StopBranch        StopReason = "branch"
	StopSpecialAction StopReason = "special_action"
	StopBoundary      StopReason = "boundary"
)

// Start is where a resolution begins.
type Start struct {
	Category   world.Category
	LocationID string
	Position   int
}

// Result describes a resolved move.
type Result struct {
	StartPosition int
	NewPosition   int
	StepsMoved    int
	Success       bool
	// CanMoveToNext is true at or beyond the far end of the pathway.
	CanMoveToNext bool
	// CanMoveToPrevious is true at or before the near end of the pathway.
	CanMoveToPrevious bool
	StopReason        StopReason
	HasBranch         bool
	BranchOptions     []world.Connection
	SpecialAction     *world.SpecialAction
}

// Resolve computes where a player starting at from ends up after moving steps
// in direction d.
//
// Precondition: g is non-nil.
// Postcondition: On success NewPosition is within [world.MinPosition, world.MaxPosition].
// The walk stops on the first position after the start, in travel order, that
// holds a branch or a special action; a special action wins a tie.
func Resolve(g *world.Graph, from Start, steps int, d Direction) (Result, error) {
	if !from.Category.IsPathway() {
		return Result{}, gameerr.ErrNotOnPathway.With("%s %q is not a road or dungeon", from.Category, from.LocationID)
	}
	if steps < 0 {
		return Result{}, gameerr.ErrInvalidSteps.With("steps must not be negative, got %d", steps)
	}
	if d != Forward && d != Backward {
		return Result{}, gameerr.ErrInvalidDirection
	}
	if _, err := g.GetLocation(from.Category, from.LocationID); err != nil {
		return Result{}, err
	}

	start := clamp(from.Position)
	end := clamp(start + d.sign()*steps)
	newPos := end
	reason := StopNone
	var action *world.SpecialAction

	if steps > 0 {
		for p := start + d.sign(); ; p += d.sign() {
			if (d == Forward && p > end) || (d == Backward && p < end) {
				break
			}
			if a, ok := g.SpecialActionAt(from.LocationID, p); ok {
				newPos, reason, action = p, StopSpecialAction, &a
				break
			}
			if g.HasBranchAt(from.LocationID, p) {
				newPos, reason = p, StopBranch
				break
			}
		}
		if reason == StopNone && (end == world.MinPosition || end == world.MaxPosition) {
			reason = StopBoundary
		}
	}

	res := Result{
		StartPosition:     start,
		NewPosition:       newPos,
		StepsMoved:        abs(newPos - start),
		Success:           true,
		CanMoveToNext:     newPos >= world.MaxPosition,
		CanMoveToPrevious: newPos <= world.MinPosition,
		StopReason:        reason,
		SpecialAction:     action,
	}
	if g.HasBranchAt(from.LocationID, newPos) {
		res.HasBranch = true
		res.BranchOptions = g.BranchOptions(from.LocationID, newPos)
	}
	if res.SpecialAction == nil {
		if a, ok := g.SpecialActionAt(from.LocationID, newPos); ok {
			res.SpecialAction = &a
		}
	}
	return res, nil
}

func clamp(p int) int {
	return min(max(p, world.MinPosition), world.MaxPosition)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
