// Package encounter rolls random monster encounters for pathway movement.
package encounter

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// Spawner produces fresh monster snapshots by template ID.
type Spawner interface {
	Spawn(id string) (monster.Snapshot, bool)
}

// Engine decides whether a move triggers an encounter and with what.
// It has no side effects beyond logging; callers decide whether to fight.
type Engine struct {
	graph   *world.Graph
	spawner Spawner
	src     dice.Source
	logger  *zap.Logger
}

// NewEngine creates an encounter Engine.
//
// Precondition: graph, spawner, src and logger must be non-nil.
func NewEngine(graph *world.Graph, spawner Spawner, src dice.Source, logger *zap.Logger) *Engine {
	return &Engine{graph: graph, spawner: spawner, src: src, logger: logger}
}

// Roll returns a freshly spawned monster or nil when nothing appears.
// playerLevel 0 means unknown and disables level filtering.
//
// Postcondition: a non-nil result has HP == MaxHP.
func (e *Engine) Roll(locationID string, playerLevel int) *monster.Snapshot {
	loc, ok := e.graph.Location(locationID)
	if !ok {
		e.logger.Warn("encounter roll for unknown location", zap.String("location_id", locationID))
		return nil
	}
	if loc.EncounterRate <= 0 || len(loc.Spawns) == 0 {
		return nil
	}
	if !dice.Chance(e.src, loc.EncounterRate) {
		return nil
	}
	entry, ok := Pick(loc.Spawns, playerLevel, e.src)
	if !ok {
		return nil
	}
	snap, ok := e.spawner.Spawn(entry.Monster)
	if !ok {
		e.logger.Warn("spawn table references unknown monster",
			zap.String("location_id", locationID),
			zap.String("monster", entry.Monster),
		)
		return nil
	}
	snap.HP = snap.MaxHP
	return &snap
}

// Pick samples one spawn entry applicable to playerLevel, weighted by
// SpawnRate. Entries with a higher Priority are laid out first so a given
// random draw always maps to the same entry.
//
// Postcondition: returns false when no entry applies.
func Pick(spawns []world.SpawnEntry, playerLevel int, src dice.Source) (world.SpawnEntry, bool) {
	candidates := make([]world.SpawnEntry, 0, len(spawns))
	for _, s := range spawns {
		if s.AppliesTo(playerLevel) && s.SpawnRate > 0 {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return world.SpawnEntry{}, false
	}
	slices.SortStableFunc(candidates, func(a, b world.SpawnEntry) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	weights := make([]int, len(candidates))
	total := 0
	for i, c := range candidates {
		weights[i] = max(1, int(c.SpawnRate*10000+0.5))
		total += weights[i]
	}
	r := src.Intn(total)
	for i, w := range weights {
		if r < w {
			return candidates[i], true
		}
		r -= w
	}
	return candidates[len(candidates)-1], true
}
