package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/storage/codec"
)

func TestEncodeDecodeBattle(t *testing.T) {
	ab := &battle.ActiveBattle{
		Character: battle.Character{UserID: 7, Name: "Aria", HP: 40, MaxHP: 50},
		Monster: monster.Snapshot{
			ID: "slime", Name: "Slime", HP: 12, MaxHP: 20, Attack: 4,
			ExperienceReward: 10, GoldReward: 5,
		},
		Log: []battle.LogEntry{{Turn: 1, Actor: battle.ActorPlayer, Action: "attack", Damage: 8, Hit: true}},
	}
	c, m, l, err := codec.EncodeBattle(ab)
	require.NoError(t, err)
	assert.Contains(t, string(m), `"stats"`)

	var got battle.ActiveBattle
	require.NoError(t, codec.DecodeBattle(&got, c, m, l))
	assert.Equal(t, ab.Monster, got.Monster)
	assert.Equal(t, ab.Log, got.Log)
	assert.Equal(t, "Aria", got.Character.Name)
	assert.NotNil(t, got.Character.Skills)
}

func TestEncodeBattle_NilLogIsEmptyArray(t *testing.T) {
	_, _, l, err := codec.EncodeBattle(&battle.ActiveBattle{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(l))
}

func TestDecodeBattle_ClampsMonsterHP(t *testing.T) {
	m := []byte(`{"id":"x","name":"X","stats":{"hp":-4,"max_hp":10}}`)
	var ab battle.ActiveBattle
	require.NoError(t, codec.DecodeBattle(&ab, []byte(`{}`), m, []byte(`[]`)))
	assert.Equal(t, 0, ab.Monster.HP)
}

func TestDecodeBattle_RejectsGarbage(t *testing.T) {
	var ab battle.ActiveBattle
	assert.Error(t, codec.DecodeBattle(&ab, []byte(`{`), []byte(`{}`), []byte(`[]`)))
	assert.Error(t, codec.DecodeBattle(&ab, []byte(`{}`), []byte(`nope`), []byte(`[]`)))
	assert.Error(t, codec.DecodeBattle(&ab, []byte(`{}`), []byte(`{}`), []byte(`{}`)))
}
