package monster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/wayfarer/internal/game/monster"
)

func genSnapshot() *rapid.Generator[monster.Snapshot] {
	return rapid.Custom(func(t *rapid.T) monster.Snapshot {
		maxHP := rapid.IntRange(1, 10000).Draw(t, "max_hp")
		return monster.Snapshot{
			ID:               rapid.StringMatching(`[a-z_]{1,12}`).Draw(t, "id"),
			Name:             rapid.String().Draw(t, "name"),
			Emoji:            rapid.String().Draw(t, "emoji"),
			Level:            rapid.IntRange(1, 99).Draw(t, "level"),
			Description:      rapid.String().Draw(t, "description"),
			HP:               rapid.IntRange(0, maxHP).Draw(t, "hp"),
			MaxHP:            maxHP,
			Attack:           rapid.IntRange(0, 500).Draw(t, "attack"),
			Defense:          rapid.IntRange(0, 500).Draw(t, "defense"),
			Agility:          rapid.IntRange(0, 500).Draw(t, "agility"),
			Evasion:          rapid.IntRange(0, 500).Draw(t, "evasion"),
			Accuracy:         rapid.IntRange(0, 500).Draw(t, "accuracy"),
			ExperienceReward: rapid.IntRange(0, 5000).Draw(t, "exp"),
			GoldReward:       rapid.IntRange(0, 5000).Draw(t, "gold"),
		}
	})
}

func TestShapes_Property_RoundTripIsLossless(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := genSnapshot().Draw(rt, "snapshot")
		got := monster.ToBattleShape(monster.ToUIShape(s))
		if got != s {
			rt.Fatalf("round trip changed snapshot: %+v != %+v", got, s)
		}
	})
}

func TestToBattleShape_Property_ClampsHP(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		u := monster.UIShape{ID: "x", Stats: monster.Stats{
			HP:    rapid.IntRange(-1000, 1000).Draw(rt, "hp"),
			MaxHP: rapid.IntRange(0, 500).Draw(rt, "max_hp"),
		}}
		s := monster.ToBattleShape(u)
		if s.HP < 0 || s.HP > s.MaxHP {
			rt.Fatalf("hp %d outside [0,%d]", s.HP, s.MaxHP)
		}
	})
}

func TestSnapshot_ApplyDamage(t *testing.T) {
	s := monster.Snapshot{HP: 30, MaxHP: 30}
	assert.Equal(t, 5, s.ApplyDamage(25))
	assert.False(t, s.IsDefeated())
	assert.Equal(t, 0, s.ApplyDamage(35))
	assert.True(t, s.IsDefeated())
}

func TestUIShape_DisplayHP(t *testing.T) {
	assert.Equal(t, 0, monster.UIShape{Stats: monster.Stats{HP: -4}}.DisplayHP())
	assert.Equal(t, 7, monster.UIShape{Stats: monster.Stats{HP: 7}}.DisplayHP())
}
