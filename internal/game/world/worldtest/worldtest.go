// Package worldtest provides a small, fully connected location graph for tests.
package worldtest

import (
	"testing"

	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// Location and connection IDs used by Graph.
const (
	TownA  = "town_a"
	TownB  = "town_b"
	TownC  = "town_c"
	RoadR  = "road_r"
	Forest = "forest_path"
	Cave   = "goblin_cave"

	ConnTownAToRoad   = "town_a_east"
	ConnRoadToTownA   = "road_r_west"
	ConnRoadToTownB   = "road_r_east"
	ConnRoadFork      = "road_r_fork_north"
	ConnRoadForkCave  = "road_r_fork_south"
	ConnForestToRoad  = "forest_back"
	ConnTownBToRoad   = "town_b_west"
	ConnBrokenBridge  = "road_r_bridge"
	ConnCaveToRoad    = "cave_exit"
	ConnForestToTownC = "forest_end"
)

// Locations returns fresh copies of the fixture locations.
//
// road_r has a branch at 50 and a treasure at 70; goblin_cave has a rest
// spot at 20 and a boss at 90.
func Locations() []*world.Location {
	return []*world.Location{
		{ID: TownA, Category: world.Town, Name: "Town A"},
		{ID: TownB, Category: world.Town, Name: "Town B"},
		{ID: TownC, Category: world.Town, Name: "Town C"},
		{
			ID: RoadR, Category: world.Road, Name: "Road R", Length: 100, Difficulty: 1,
			EncounterRate: 0.3,
			SpecialActions: []world.SpecialAction{
				{Position: 70, Type: world.ActionTreasure, Label: "A glinting chest", Gold: 25},
			},
			Spawns: []world.SpawnEntry{
				{Monster: "slime", SpawnRate: 0.7, Priority: 1, MaxLevel: 5},
				{Monster: "goblin", SpawnRate: 0.3, Priority: 2, MinLevel: 2},
			},
		},
		{ID: Forest, Category: world.Road, Name: "Forest Path", Length: 100, EncounterRate: 0.5,
			Spawns: []world.SpawnEntry{{Monster: "wolf", SpawnRate: 1}}},
		{
			ID: Cave, Category: world.Dungeon, Name: "Goblin Cave", Length: 100, EncounterRate: 0.4,
			Dungeon: &world.DungeonInfo{Floors: 1, MinLevel: 2, MaxLevel: 6, Boss: "goblin_king"},
			SpecialActions: []world.SpecialAction{
				{Position: 20, Type: world.ActionRest, Label: "A quiet alcove"},
				{Position: 90, Type: world.ActionBoss, Label: "The Goblin King", Monster: "goblin_king"},
			},
			Spawns: []world.SpawnEntry{{Monster: "goblin", SpawnRate: 1}},
		},
	}
}

// Connections returns the fixture connections.
func Connections() []world.Connection {
	return []world.Connection{
		{ID: ConnTownAToRoad, SourceLocationID: TownA, TargetLocationID: RoadR, Direction: world.East, ActionLabel: "Head east", Enabled: true},
		{ID: ConnRoadToTownA, SourceLocationID: RoadR, SourcePosition: world.Pos(0), TargetLocationID: TownA, Direction: world.West, ActionLabel: "Enter Town A", Enabled: true},
		{ID: ConnRoadToTownB, SourceLocationID: RoadR, SourcePosition: world.Pos(100), TargetLocationID: TownB, Direction: world.East, ActionLabel: "Enter Town B", Enabled: true},
		{ID: ConnBrokenBridge, SourceLocationID: RoadR, SourcePosition: world.Pos(100), TargetLocationID: TownC, Direction: world.North, ActionLabel: "Cross the bridge", Enabled: false},
		{ID: ConnRoadFork, SourceLocationID: RoadR, SourcePosition: world.Pos(50), TargetLocationID: Forest, Direction: world.Left, ActionLabel: "Take the forest path", Enabled: true},
		{ID: ConnRoadForkCave, SourceLocationID: RoadR, SourcePosition: world.Pos(50), TargetLocationID: Cave, Direction: world.Right, ActionLabel: "Descend into the cave", Enabled: true},
		{ID: ConnForestToRoad, SourceLocationID: Forest, SourcePosition: world.Pos(0), TargetLocationID: RoadR, TargetPosition: world.Pos(50), Direction: world.Right, Enabled: true},
		{ID: ConnForestToTownC, SourceLocationID: Forest, SourcePosition: world.Pos(100), TargetLocationID: TownC, Direction: world.North, Enabled: true},
		{ID: ConnCaveToRoad, SourceLocationID: Cave, SourcePosition: world.Pos(0), TargetLocationID: RoadR, TargetPosition: world.Pos(50), Direction: world.Up, Enabled: true},
		{ID: ConnTownBToRoad, SourceLocationID: TownB, TargetLocationID: RoadR, TargetPosition: world.Pos(100), Direction: world.West, Enabled: true},
	}
}

// Graph builds and validates the fixture graph, failing the test on error.
func Graph(t testing.TB) *world.Graph {
	t.Helper()
	g, err := world.NewGraph(Locations(), Connections())
	if err != nil {
		t.Fatalf("building fixture graph: %v", err)
	}
	if err := g.ValidateConnections(); err != nil {
		t.Fatalf("validating fixture graph: %v", err)
	}
	return g
}
