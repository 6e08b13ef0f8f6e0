// Package storetest holds the contract every player and battle store must
// satisfy. Backend packages run it against their own implementation.
package storetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/storage"
)

// PlayerStore is the full player repository contract.
type PlayerStore interface {
	Create(ctx context.Context, p *player.Player, skillIDs ...string) error
	Get(ctx context.Context, userID int64) (*player.Player, error)
	Position(ctx context.Context, userID int64) (player.Position, error)
	UpdatePosition(ctx context.Context, userID int64, expected, next player.Position) error
	SaveVitals(ctx context.Context, p *player.Player) error
	SkillIDs(ctx context.Context, userID int64) ([]string, error)
	GrantSkill(ctx context.Context, userID int64, skillID string) error
	ClaimTreasure(ctx context.Context, userID int64, locationID string, position, gold int) (int, error)
}

// HistoryStore lists finished battles.
type HistoryStore interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]battle.HistoryRecord, error)
}

// Stores is one backend's set of repositories over an empty schema.
type Stores struct {
	Players PlayerStore
	Battles battle.BattleStore
	History HistoryStore
}

// Run executes the contract suite. open must return stores over an empty
// database each time it is called.
func Run(t *testing.T, open func(t *testing.T) Stores) {
	t.Run("PlayerCreateGet", func(t *testing.T) { testPlayerCreateGet(t, open(t)) })
	t.Run("PositionCompareAndSet", func(t *testing.T) { testPositionCAS(t, open(t)) })
	t.Run("SaveVitals", func(t *testing.T) { testSaveVitals(t, open(t)) })
	t.Run("Skills", func(t *testing.T) { testSkills(t, open(t)) })
	t.Run("CreateWithSkills", func(t *testing.T) { testCreateWithSkills(t, open(t)) })
	t.Run("TreasureClaimedOnce", func(t *testing.T) { testTreasureClaimedOnce(t, open(t)) })
	t.Run("BattleRoundTrip", func(t *testing.T) { testBattleRoundTrip(t, open(t)) })
	t.Run("BattleTurnGuard", func(t *testing.T) { testBattleTurnGuard(t, open(t)) })
	t.Run("BattleDeleteIdempotent", func(t *testing.T) { testBattleDelete(t, open(t)) })
	t.Run("Complete", func(t *testing.T) { testComplete(t, open(t)) })
	t.Run("CompleteStale", func(t *testing.T) { testCompleteStale(t, open(t)) })
	t.Run("HistoryOrder", func(t *testing.T) { testHistoryOrder(t, open(t)) })
}

// NewPlayer returns a level 1 player standing on road_r at position 30.
func NewPlayer(userID int64) *player.Player {
	p := player.New(userID, "Aria", "town_a")
	p.Position = player.Position{LocationType: world.Road, LocationID: "road_r", Position: 30}
	return p
}

// NewBattle returns a turn 1 battle for userID against a slime.
func NewBattle(userID int64) *battle.ActiveBattle {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &battle.ActiveBattle{
		BattleID:  uuid.NewString(),
		UserID:    userID,
		Character: battle.Character{UserID: userID, Name: "Aria", Level: 1, HP: 50, MaxHP: 50, Skills: []string{"fireball"}},
		Monster: monster.Snapshot{
			ID: "slime", Name: "Slime", Emoji: "🟢", Level: 1, HP: 20, MaxHP: 20,
			Attack: 5, Defense: 2, Agility: 3, ExperienceReward: 10, GoldReward: 5,
		},
		Log:       []battle.LogEntry{},
		Turn:      1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testPlayerCreateGet(t *testing.T, s Stores) {
	ctx := context.Background()
	p := NewPlayer(1)
	require.NoError(t, s.Players.Create(ctx, p))
	assert.ErrorIs(t, s.Players.Create(ctx, p), storage.ErrPlayerExists)

	got, err := s.Players.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = s.Players.Get(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrPlayerNotFound)
	_, err = s.Players.Position(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrPlayerNotFound)
}

func testPositionCAS(t *testing.T, s Stores) {
	ctx := context.Background()
	p := NewPlayer(1)
	require.NoError(t, s.Players.Create(ctx, p))

	next := player.Position{LocationType: world.Road, LocationID: "road_r", Position: 45}
	require.NoError(t, s.Players.UpdatePosition(ctx, 1, p.Position, next))

	got, err := s.Players.Position(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	err = s.Players.UpdatePosition(ctx, 1, p.Position, next)
	assert.ErrorIs(t, err, storage.ErrStaleWrite)

	err = s.Players.UpdatePosition(ctx, 99, p.Position, next)
	assert.ErrorIs(t, err, storage.ErrPlayerNotFound)

	town := player.Position{LocationType: world.Town, LocationID: "town_b", Position: 70}
	require.NoError(t, s.Players.UpdatePosition(ctx, 1, next, town))
	got, err = s.Players.Position(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Position)
}

func testSaveVitals(t *testing.T, s Stores) {
	ctx := context.Background()
	p := NewPlayer(1)
	require.NoError(t, s.Players.Create(ctx, p))

	p.HP, p.MP, p.SP, p.Gold = 12, 3, 4, 99
	require.NoError(t, s.Players.SaveVitals(ctx, p))
	got, err := s.Players.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{12, 3, 4, 99}, []int{got.HP, got.MP, got.SP, got.Gold})

	assert.ErrorIs(t, s.Players.SaveVitals(ctx, NewPlayer(99)), storage.ErrPlayerNotFound)
}

func testSkills(t *testing.T, s Stores) {
	ctx := context.Background()
	require.NoError(t, s.Players.Create(ctx, NewPlayer(1)))

	ids, err := s.Players.SkillIDs(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	require.NoError(t, s.Players.GrantSkill(ctx, 1, "heal"))
	require.NoError(t, s.Players.GrantSkill(ctx, 1, "fireball"))
	require.NoError(t, s.Players.GrantSkill(ctx, 1, "heal"))
	ids, err = s.Players.SkillIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"fireball", "heal"}, ids)

	assert.ErrorIs(t, s.Players.GrantSkill(ctx, 99, "heal"), storage.ErrPlayerNotFound)
}

func testCreateWithSkills(t *testing.T, s Stores) {
	ctx := context.Background()
	p := NewPlayer(1)
	require.NoError(t, s.Players.Create(ctx, p, "power_strike", "first_aid", "power_strike"))
	ids, err := s.Players.SkillIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_aid", "power_strike"}, ids)

	assert.ErrorIs(t, s.Players.Create(ctx, p, "iron_skin"), storage.ErrPlayerExists)
	ids, err = s.Players.SkillIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_aid", "power_strike"}, ids, "a rejected create grants nothing")
}

func testTreasureClaimedOnce(t *testing.T, s Stores) {
	ctx := context.Background()
	p := NewPlayer(1)
	p.Gold = 50
	require.NoError(t, s.Players.Create(ctx, p))
	require.NoError(t, s.Players.Create(ctx, NewPlayer(2)))

	total, err := s.Players.ClaimTreasure(ctx, 1, "road_r", 70, 25)
	require.NoError(t, err)
	assert.Equal(t, 75, total)

	_, err = s.Players.ClaimTreasure(ctx, 1, "road_r", 70, 25)
	assert.ErrorIs(t, err, storage.ErrTreasureClaimed)
	got, err := s.Players.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 75, got.Gold)

	total, err = s.Players.ClaimTreasure(ctx, 1, "goblin_cave", 70, 10)
	require.NoError(t, err)
	assert.Equal(t, 85, total, "another treasure is still closed")
	_, err = s.Players.ClaimTreasure(ctx, 2, "road_r", 70, 25)
	assert.NoError(t, err, "claims are per user")

	_, err = s.Players.ClaimTreasure(ctx, 99, "road_r", 70, 25)
	assert.ErrorIs(t, err, storage.ErrPlayerNotFound)
}

func testBattleRoundTrip(t *testing.T, s Stores) {
	ctx := context.Background()
	require.NoError(t, s.Players.Create(ctx, NewPlayer(1)))

	_, err := s.Battles.Get(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrBattleNotFound)

	ab := NewBattle(1)
	require.NoError(t, s.Battles.Create(ctx, ab))
	assert.ErrorIs(t, s.Battles.Create(ctx, NewBattle(1)), storage.ErrBattleExists)

	got, err := s.Battles.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ab.BattleID, got.BattleID)
	assert.Equal(t, ab.Character, got.Character)
	assert.Equal(t, ab.Monster, got.Monster)
	assert.Equal(t, 1, got.Turn)
	assert.Empty(t, got.Log)
	assert.WithinDuration(t, ab.CreatedAt, got.CreatedAt, time.Second)
}

func testBattleTurnGuard(t *testing.T, s Stores) {
	ctx := context.Background()
	require.NoError(t, s.Players.Create(ctx, NewPlayer(1)))
	ab := NewBattle(1)
	require.NoError(t, s.Battles.Create(ctx, ab))

	ab.Monster.ApplyDamage(8)
	ab.Log = append(ab.Log, battle.LogEntry{Turn: 1, Actor: battle.ActorPlayer, Action: "attack", Damage: 8, Hit: true})
	ab.Turn = 2
	require.NoError(t, s.Battles.Update(ctx, ab, 1))

	got, err := s.Battles.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Monster.HP)
	assert.Equal(t, 2, got.Turn)
	assert.Equal(t, ab.Log, got.Log)

	ab.Turn = 3
	assert.ErrorIs(t, s.Battles.Update(ctx, ab, 1), storage.ErrStaleWrite)

	require.NoError(t, s.Battles.Delete(ctx, 1))
	assert.ErrorIs(t, s.Battles.Update(ctx, ab, 2), storage.ErrBattleNotFound)
}

func testBattleDelete(t *testing.T, s Stores) {
	ctx := context.Background()
	require.NoError(t, s.Players.Create(ctx, NewPlayer(1)))
	require.NoError(t, s.Battles.Create(ctx, NewBattle(1)))
	require.NoError(t, s.Battles.Delete(ctx, 1))
	require.NoError(t, s.Battles.Delete(ctx, 1))
	_, err := s.Battles.Get(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrBattleNotFound)
}

func completion(ab *battle.ActiveBattle, p *player.Player, expected int, endedAt time.Time) battle.Completion {
	data, _ := json.Marshal(map[string]any{"turns": ab.Turn})
	return battle.Completion{
		UserID:       ab.UserID,
		BattleID:     ab.BattleID,
		ExpectedTurn: expected,
		Player:       p,
		History: battle.HistoryRecord{
			UserID:           ab.UserID,
			BattleID:         ab.BattleID,
			MonsterName:      ab.Monster.Name,
			Result:           battle.Victory,
			ExperienceGained: 10,
			GoldGained:       5,
			Turns:            ab.Turn,
			BattleData:       data,
			EndedAt:          endedAt,
		},
	}
}

func testComplete(t *testing.T, s Stores) {
	ctx := context.Background()
	p := NewPlayer(1)
	require.NoError(t, s.Players.Create(ctx, p))
	ab := NewBattle(1)
	require.NoError(t, s.Battles.Create(ctx, ab))

	p.Gold += 5
	p.Experience += 10
	p.HP = 31
	require.NoError(t, s.Battles.Complete(ctx, completion(ab, p, 1, time.Now().UTC())))

	_, err := s.Battles.Get(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrBattleNotFound)
	got, err := s.Players.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	hist, err := s.History.ListByUser(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, ab.BattleID, hist[0].BattleID)
	assert.Equal(t, battle.Victory, hist[0].Result)
	assert.Equal(t, "Slime", hist[0].MonsterName)
	assert.JSONEq(t, `{"turns":1}`, string(hist[0].BattleData))

	assert.ErrorIs(t, s.Battles.Complete(ctx, completion(ab, p, 1, time.Now().UTC())), storage.ErrStaleWrite)
}

func testCompleteStale(t *testing.T, s Stores) {
	ctx := context.Background()
	p := NewPlayer(1)
	require.NoError(t, s.Players.Create(ctx, p))
	ab := NewBattle(1)
	require.NoError(t, s.Battles.Create(ctx, ab))

	changed := *p
	changed.Gold = 1000
	assert.ErrorIs(t, s.Battles.Complete(ctx, completion(ab, &changed, 2, time.Now().UTC())), storage.ErrStaleWrite)

	got, err := s.Players.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p.Gold, got.Gold)
	_, err = s.Battles.Get(ctx, 1)
	assert.NoError(t, err)
	hist, err := s.History.ListByUser(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func testHistoryOrder(t *testing.T, s Stores) {
	ctx := context.Background()
	p := NewPlayer(1)
	require.NoError(t, s.Players.Create(ctx, p))

	base := time.Now().UTC().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		ab := NewBattle(1)
		require.NoError(t, s.Battles.Create(ctx, ab))
		require.NoError(t, s.Battles.Complete(ctx, completion(ab, p, 1, base.Add(time.Duration(i)*time.Minute))))
		ids = append(ids, ab.BattleID)
	}

	hist, err := s.History.ListByUser(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, ids[2], hist[0].BattleID)
	assert.Equal(t, ids[1], hist[1].BattleID)

	hist, err = s.History.ListByUser(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, hist)
}
