package player_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

func TestPosition_Normalize(t *testing.T) {
	assert.Equal(t, 0, player.Position{LocationType: world.Town, LocationID: "t", Position: 42}.Normalize().Position)
	assert.Equal(t, 100, player.Position{LocationType: world.Road, Position: 140}.Normalize().Position)
	assert.Equal(t, 0, player.Position{LocationType: world.Dungeon, Position: -3}.Normalize().Position)
	assert.Equal(t, 55, player.Position{LocationType: world.Road, Position: 55}.Normalize().Position)
}

func TestPosition_Property_NormalizeInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cat := rapid.SampledFrom([]world.Category{world.Town, world.Road, world.Dungeon}).Draw(rt, "cat")
		p := player.Position{LocationType: cat, Position: rapid.Int().Draw(rt, "pos")}.Normalize()
		if p.Position < world.MinPosition || p.Position > world.MaxPosition {
			rt.Fatalf("position %d out of range", p.Position)
		}
		if !cat.IsPathway() && p.Position != 0 {
			rt.Fatalf("town position %d", p.Position)
		}
	})
}

func TestPlayer_GainExperience_LevelsUpAndRefills(t *testing.T) {
	p := player.New(1, "Ayla", "town_a")
	p.HP = 3
	levels := p.GainExperience(100, player.DefaultGrowth)
	assert.Equal(t, 1, levels)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 60, p.MaxHP)
	assert.Equal(t, 60, p.HP)
	assert.Equal(t, 12, p.Attack)
	assert.Equal(t, 6, p.Defense)
	assert.Equal(t, 11, p.Agility)
}

func TestPlayer_GainExperience_MultipleLevels(t *testing.T) {
	p := player.New(1, "Ayla", "town_a")
	// Level 1→2 at 100, 2→3 at 200, 3→4 at 300.
	assert.Equal(t, 3, p.GainExperience(300, player.DefaultGrowth))
	assert.Equal(t, 4, p.Level)
}

func TestPlayer_GainExperience_NoLevel(t *testing.T) {
	p := player.New(1, "Ayla", "town_a")
	p.HP = 3
	assert.Equal(t, 0, p.GainExperience(40, player.DefaultGrowth))
	assert.Equal(t, 3, p.HP)
	assert.Equal(t, 40, p.Experience)
}

func TestPlayer_ClampVitals(t *testing.T) {
	p := player.Player{HP: -5, MaxHP: 10, MP: 30, MaxMP: 20, SP: 4, MaxSP: 8}
	p.ClampVitals()
	assert.Equal(t, 0, p.HP)
	assert.Equal(t, 20, p.MP)
	assert.Equal(t, 4, p.SP)
}
