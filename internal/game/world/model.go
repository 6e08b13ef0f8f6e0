// Package world provides the location graph: towns, roads and dungeons, and
// the directed, position-scoped connections between them.
package world

import (
	"fmt"
	"slices"
)

// Positions along a pathway axis.
const (
	MinPosition = 0
	MaxPosition = 100
)

// Category classifies a location. It is fixed when content is authored.
type Category string

// Location categories.
const (
	Town    Category = "town"
	Road    Category = "road"
	Dungeon Category = "dungeon"
)

// IsPathway reports whether locations of this category have a 0–100 position axis.
func (c Category) IsPathway() bool {
	return c == Road || c == Dungeon
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == Town || c == Road || c == Dungeon
}

// Direction names the way a connection leads, e.g. "north" or "left".
type Direction string

// Compass and branch directions. Content may use any other name.
const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
	Left  Direction = "left"
	Right Direction = "right"
	Up    Direction = "up"
	Down  Direction = "down"
)

// Opposite returns the reverse of a known direction, or "" for custom names.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Left:
		return Right
	case Right:
		return Left
	case Up:
		return Down
	case Down:
		return Up
	default:
		return ""
	}
}

// SpecialActionType identifies the event a special-action position triggers.
type SpecialActionType string

// Special action types.
const (
	ActionBoss     SpecialActionType = "boss"
	ActionTreasure SpecialActionType = "treasure"
	ActionTeleport SpecialActionType = "teleport"
	ActionFacility SpecialActionType = "facility"
	ActionRest     SpecialActionType = "rest"
)

var specialActionTypes = []SpecialActionType{ActionBoss, ActionTreasure, ActionTeleport, ActionFacility, ActionRest}

// SpecialAction is a pathway position that interrupts movement with an event.
type SpecialAction struct {
	Position int
	Type     SpecialActionType
	Label    string
	// Monster is the boss template ID for ActionBoss.
	Monster string
	// Gold is the reward for ActionTreasure.
	Gold int
	// TargetLocation and TargetPosition are the destination for ActionTeleport.
	TargetLocation string
	TargetPosition int
}

// SpawnEntry is one row of a location's encounter table.
type SpawnEntry struct {
	Monster   string
	SpawnRate float64
	Priority  int
	// MinLevel and MaxLevel bound the player levels this entry applies to; 0 = unbounded.
	MinLevel int
	MaxLevel int
}

// AppliesTo reports whether a player of the given level can meet this spawn.
// Level 0 means unknown and matches every entry.
func (s SpawnEntry) AppliesTo(level int) bool {
	if level <= 0 {
		return true
	}
	if s.MinLevel > 0 && level < s.MinLevel {
		return false
	}
	if s.MaxLevel > 0 && level > s.MaxLevel {
		return false
	}
	return true
}

// DungeonInfo carries dungeon-only metadata.
type DungeonInfo struct {
	Floors   int
	MinLevel int
	MaxLevel int
	Boss     string
}

// Location is a node in the world graph.
type Location struct {
	ID            string
	Category      Category
	Name          string
	Description   string
	Length        int
	Difficulty    int
	EncounterRate float64
	Dungeon       *DungeonInfo
	// SpecialActions is sorted by Position.
	SpecialActions []SpecialAction
	Spawns         []SpawnEntry
}

// SpecialActionAt returns the special action registered at pos.
func (l *Location) SpecialActionAt(pos int) (SpecialAction, bool) {
	i, found := slices.BinarySearchFunc(l.SpecialActions, pos, func(a SpecialAction, p int) int { return a.Position - p })
	if !found {
		return SpecialAction{}, false
	}
	return l.SpecialActions[i], true
}

// Validate checks location invariants that do not depend on the rest of the graph.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (l *Location) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("location ID must not be empty")
	}
	if !l.Category.Valid() {
		return fmt.Errorf("location %q: unknown category %q", l.ID, l.Category)
	}
	if l.Name == "" {
		return fmt.Errorf("location %q: name must not be empty", l.ID)
	}
	if l.EncounterRate < 0 || l.EncounterRate > 1 {
		return fmt.Errorf("location %q: encounter_rate must be in [0,1], got %v", l.ID, l.EncounterRate)
	}
	if !l.Category.IsPathway() && len(l.SpecialActions) > 0 {
		return fmt.Errorf("location %q: special actions are only allowed on pathways", l.ID)
	}
	if l.Dungeon != nil && l.Category != Dungeon {
		return fmt.Errorf("location %q: dungeon metadata on a %s", l.ID, l.Category)
	}
	seen := make(map[int]bool, len(l.SpecialActions))
	for _, a := range l.SpecialActions {
		if a.Position < MinPosition || a.Position > MaxPosition {
			return fmt.Errorf("location %q: special action at %d is outside [0,100]", l.ID, a.Position)
		}
		if seen[a.Position] {
			return fmt.Errorf("location %q: two special actions at position %d", l.ID, a.Position)
		}
		seen[a.Position] = true
		if !slices.Contains(specialActionTypes, a.Type) {
			return fmt.Errorf("location %q: unknown special action type %q", l.ID, a.Type)
		}
		if a.Type == ActionBoss && a.Monster == "" {
			return fmt.Errorf("location %q: boss action at %d names no monster", l.ID, a.Position)
		}
		if a.Type == ActionTeleport && a.TargetLocation == "" {
			return fmt.Errorf("location %q: teleport action at %d names no target", l.ID, a.Position)
		}
	}
	for i, s := range l.Spawns {
		if s.Monster == "" {
			return fmt.Errorf("location %q: spawn[%d] names no monster", l.ID, i)
		}
		if s.SpawnRate <= 0 {
			return fmt.Errorf("location %q: spawn[%d] spawn_rate must be > 0", l.ID, i)
		}
		if s.MaxLevel > 0 && s.MinLevel > s.MaxLevel {
			return fmt.Errorf("location %q: spawn[%d] min_level exceeds max_level", l.ID, i)
		}
	}
	return nil
}

// Connection is a directed edge from a location, optionally pinned to a
// position on the source pathway.
type Connection struct {
	ID               string
	SourceLocationID string
	// SourcePosition nil means a town-type connection that is always visible.
	SourcePosition   *int
	TargetLocationID string
	// TargetPosition nil means arrive at position 0.
	TargetPosition   *int
	ActionLabel      string
	KeyboardShortcut string
	EdgeType         string
	Direction        Direction
	Enabled          bool
}

// ArrivalPosition returns the position a traveller lands on.
func (c Connection) ArrivalPosition() int {
	if c.TargetPosition == nil {
		return MinPosition
	}
	return *c.TargetPosition
}

// IsBranch reports whether the connection leaves from the interior of a pathway.
func (c Connection) IsBranch() bool {
	return c.SourcePosition != nil && *c.SourcePosition > MinPosition && *c.SourcePosition < MaxPosition
}

// Pos returns a pointer to p, for building connections in code and tests.
func Pos(p int) *int { return &p }
