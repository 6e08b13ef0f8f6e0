package gameserver_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/gameerr"
	"github.com/cory-johannsen/wayfarer/internal/game/movement"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/game/world/worldtest"
	"github.com/cory-johannsen/wayfarer/internal/gameserver"
	"github.com/cory-johannsen/wayfarer/internal/storage/sqlite"
)

func TestCreatePlayer_StartsInTownWithStarterSkills(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()

	p, err := h.svc.Player(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "Ayla", p.Name)
	assert.Equal(t, player.Position{LocationType: world.Town, LocationID: worldtest.TownA}, p.Position)
	assert.Equal(t, 1, p.Level)

	skills, err := h.players.SkillIDs(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, []string{"power_strike"}, skills)

	_, err = h.svc.CreatePlayer(ctx, uid, "Again")
	assert.ErrorIs(t, err, gameerr.ErrPlayerExists)
	assert.Equal(t, 1, h.logs.FilterMessage("player created").Len())
}

func TestPlayer_UnknownUser(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	_, err := h.svc.Player(context.Background(), 99)
	assert.ErrorIs(t, err, gameerr.ErrPlayerNotFound)
}

func TestRollDice_AddsAgilityBonusAndRemembersRoll(t *testing.T) {
	h := newHarness(t, fixedSource{2})
	res, err := h.svc.RollDice(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 3}, res.Rolls)
	assert.Equal(t, 9, res.BaseTotal)
	// Starting agility 10 / divisor 10.
	assert.Equal(t, 1, res.Bonus)
	assert.Equal(t, 10, res.FinalMovement)

	last, ok := h.sessions.LastRoll(uid)
	require.True(t, ok)
	assert.Equal(t, 10, last.FinalMovement)
	assert.Equal(t, player.Position{LocationType: world.Town, LocationID: worldtest.TownA}, h.stored(t))
}

func TestMove_StopsAtBranch(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	h.place(t, road(30))

	res, err := h.svc.Move(context.Background(), uid, "forward", 25)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 50, res.Position.Position)
	assert.Equal(t, 20, res.StepsMoved)
	assert.Equal(t, string(movement.StopBranch), res.StopReason)
	assert.True(t, res.HasBranch)
	require.Len(t, res.BranchOptions, 2)
	assert.Equal(t, worldtest.ConnRoadFork, res.BranchOptions[0].ID)
	assert.Equal(t, "Forest Path", res.BranchOptions[0].TargetName)
	assert.Nil(t, res.Encounter)
	assert.Equal(t, road(50), h.stored(t))
}

func TestMove_RollsEncounterOnRoad(t *testing.T) {
	h := newHarness(t, fixedSource{pass})
	h.place(t, road(30))

	res, err := h.svc.Move(context.Background(), uid, "forward", 10)
	require.NoError(t, err)
	require.NotNil(t, res.Encounter)
	assert.Equal(t, "slime", res.Encounter.ID)
	assert.Equal(t, 30, res.Encounter.Stats.HP)
	assert.Contains(t, res.Message, "Slime")

	enc, ok := h.sessions.PendingEncounter(uid)
	require.True(t, ok)
	assert.Equal(t, worldtest.RoadR, enc.LocationID)
	assert.False(t, enc.Boss)
}

func TestMove_NoEncounterWhenNotMoving(t *testing.T) {
	h := newHarness(t, fixedSource{pass})
	h.place(t, road(30))

	res, err := h.svc.Move(context.Background(), uid, "forward", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.StepsMoved)
	assert.Nil(t, res.Encounter)
	_, ok := h.sessions.PendingEncounter(uid)
	assert.False(t, ok)
}

func TestMove_DungeonEncountersFollowRules(t *testing.T) {
	h := newHarness(t, fixedSource{pass}, withRules(func(r *gameserver.Rules) { r.EncountersInDungeons = false }))
	h.place(t, cave(0))
	res, err := h.svc.Move(context.Background(), uid, "forward", 10)
	require.NoError(t, err)
	assert.Nil(t, res.Encounter)

	h = newHarness(t, fixedSource{pass})
	h.place(t, cave(0))
	res, err = h.svc.Move(context.Background(), uid, "forward", 10)
	require.NoError(t, err)
	require.NotNil(t, res.Encounter)
	assert.Equal(t, "goblin", res.Encounter.ID)
}

func TestMove_Rejections(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()

	_, err := h.svc.Move(ctx, uid, "forward", 5)
	assert.ErrorIs(t, err, gameerr.ErrNotOnPathway)

	h.place(t, road(30))
	_, err = h.svc.Move(ctx, uid, "sideways", 5)
	assert.ErrorIs(t, err, gameerr.ErrInvalidDirection)
	_, err = h.svc.Move(ctx, uid, "forward", -1)
	assert.ErrorIs(t, err, gameerr.ErrInvalidSteps)
	_, err = h.svc.Move(ctx, uid, "forward", 101)
	assert.ErrorIs(t, err, gameerr.ErrInvalidSteps)
	assert.Equal(t, road(30), h.stored(t))
}

func TestMove_StaleWriteIsPositionConflict(t *testing.T) {
	h := newHarness(t, fixedSource{fail}, withPlayerStore(func(r *sqlite.PlayerRepository) gameserver.PlayerStore {
		return &racingStore{PlayerRepository: r, to: road(90)}
	}))
	h.place(t, road(30))

	_, err := h.svc.Move(context.Background(), uid, "forward", 10)
	assert.ErrorIs(t, err, gameerr.ErrPositionConflict)
	assert.Equal(t, road(90), h.stored(t))
	_, cached := h.sessions.CachedPosition(uid)
	assert.False(t, cached)
}

// racingStore lets another writer move the player just before the first
// position write lands.
type racingStore struct {
	*sqlite.PlayerRepository
	to   player.Position
	once sync.Once
}

func (r *racingStore) UpdatePosition(ctx context.Context, userID int64, expected, next player.Position) error {
	r.once.Do(func() {
		_ = r.PlayerRepository.UpdatePosition(ctx, userID, expected, r.to)
	})
	return r.PlayerRepository.UpdatePosition(ctx, userID, expected, next)
}

func TestMove_ConcurrentMovesAllApply(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	h.place(t, road(30))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Move(context.Background(), uid, "forward", 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, road(40), h.stored(t))
}

func TestMove_Property_StoredPositionMatchesResolver(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	g := testGraph(t)
	rapid.Check(t, func(rt *rapid.T) {
		start := rapid.IntRange(world.MinPosition, world.MaxPosition).Draw(rt, "start")
		steps := rapid.IntRange(0, 100).Draw(rt, "steps")
		dir := rapid.SampledFrom([]string{"forward", "backward"}).Draw(rt, "direction")
		h.place(t, forest(start))

		d, _ := movement.ParseDirection(dir)
		want, err := movement.Resolve(g, movement.Start{Category: world.Road, LocationID: worldtest.Forest, Position: start}, steps, d)
		if err != nil {
			rt.Fatalf("resolve: %v", err)
		}
		res, err := h.svc.Move(context.Background(), uid, dir, steps)
		if err != nil {
			rt.Fatalf("move: %v", err)
		}
		got := h.stored(t).Position
		if got != want.NewPosition || got != res.Position.Position {
			rt.Fatalf("stored %d, result %d, resolver %d", got, res.Position.Position, want.NewPosition)
		}
		if got < world.MinPosition || got > world.MaxPosition {
			rt.Fatalf("position %d outside [0,100]", got)
		}
	})
}

func TestMoveToConnection_EndOfRoadEntersTown(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	h.place(t, road(100))

	res, err := h.svc.MoveToConnection(context.Background(), uid, worldtest.ConnRoadToTownB)
	require.NoError(t, err)
	want := player.Position{LocationType: world.Town, LocationID: worldtest.TownB, Position: 0}
	assert.Equal(t, want, res.Position)
	assert.Equal(t, want, h.stored(t))
	assert.Equal(t, "Enter Town B", res.Message)
}

func TestMoveToConnection_ChecksInOrder(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()

	_, err := h.svc.MoveToConnection(ctx, uid, "nowhere")
	assert.ErrorIs(t, err, gameerr.ErrConnectionNotFound)

	_, err = h.svc.MoveToConnection(ctx, uid, worldtest.ConnRoadToTownB)
	assert.ErrorIs(t, err, gameerr.ErrLocationMismatch)

	h.place(t, road(30))
	_, err = h.svc.MoveToConnection(ctx, uid, worldtest.ConnRoadToTownB)
	assert.ErrorIs(t, err, gameerr.ErrPositionMismatch)

	h.place(t, road(100))
	_, err = h.svc.MoveToConnection(ctx, uid, worldtest.ConnBrokenBridge)
	assert.ErrorIs(t, err, gameerr.ErrConnectionDisabled)
	assert.Equal(t, road(100), h.stored(t))
}

func TestMoveToConnection_ReloadsPosition(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()
	h.place(t, road(30))

	// Warm the cache at 30, then move the player behind its back.
	_, err := h.svc.Position(ctx, uid)
	require.NoError(t, err)
	require.NoError(t, h.players.UpdatePosition(ctx, uid, road(30), road(100)))
	cached, ok := h.sessions.CachedPosition(uid)
	require.True(t, ok)
	assert.Equal(t, 30, cached.Position)

	res, err := h.svc.MoveToConnection(ctx, uid, worldtest.ConnRoadToTownB)
	require.NoError(t, err)
	assert.Equal(t, worldtest.TownB, res.Position.LocationID)
	_, ok = h.sessions.CachedPosition(uid)
	assert.False(t, ok)
}

func TestMoveToDirection(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()

	res, err := h.svc.MoveToDirection(ctx, uid, "east")
	require.NoError(t, err)
	assert.Equal(t, road(0), res.Position)
	assert.True(t, res.CanMoveToPrevious)

	_, err = h.svc.MoveToDirection(ctx, uid, "north")
	assert.ErrorIs(t, err, gameerr.ErrConnectionNotFound)

	h.place(t, road(100))
	_, err = h.svc.MoveToDirection(ctx, uid, "north")
	assert.ErrorIs(t, err, gameerr.ErrConnectionDisabled)
	res, err = h.svc.MoveToDirection(ctx, uid, "east")
	require.NoError(t, err)
	assert.Equal(t, worldtest.TownB, res.Position.LocationID)
}

func TestMoveToDirection_UnknownDirectionIsValidation(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()
	h.place(t, road(50))

	for _, d := range []string{"nrth", "", "forward"} {
		_, err := h.svc.MoveToDirection(ctx, uid, d)
		assert.ErrorIs(t, err, gameerr.ErrInvalidDirection, d)
		assert.Equal(t, gameerr.KindValidation, gameerr.KindOf(err), d)
		_, err = h.svc.MoveToBranch(ctx, uid, d)
		assert.ErrorIs(t, err, gameerr.ErrInvalidDirection, d)
	}
	assert.Equal(t, road(50), h.stored(t))

	res, err := h.svc.MoveToBranch(ctx, uid, " LEFT ")
	require.NoError(t, err)
	assert.Equal(t, worldtest.Forest, res.Position.LocationID)
}

func TestMoveToBranch(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()

	h.place(t, road(30))
	_, err := h.svc.MoveToBranch(ctx, uid, "left")
	assert.ErrorIs(t, err, gameerr.ErrPositionMismatch)

	h.place(t, road(50))
	_, err = h.svc.MoveToBranch(ctx, uid, "up")
	assert.ErrorIs(t, err, gameerr.ErrConnectionNotFound)

	res, err := h.svc.MoveToBranch(ctx, uid, "right")
	require.NoError(t, err)
	assert.Equal(t, cave(0), res.Position)
	assert.Equal(t, cave(0), h.stored(t))
}

func TestPosition_ShowsVisibleConnections(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()
	h.place(t, road(50))

	view, err := h.svc.Position(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "Road R", view.Location.Name)
	assert.True(t, view.HasBranch)
	assert.Nil(t, view.SpecialAction)
	ids := make([]string, 0, len(view.Connections))
	for _, c := range view.Connections {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{worldtest.ConnRoadFork, worldtest.ConnRoadForkCave}, ids)

	_, ok := h.sessions.CachedPosition(uid)
	assert.True(t, ok)
	_, err = h.svc.Move(ctx, uid, "forward", 20)
	require.NoError(t, err)
	_, ok = h.sessions.CachedPosition(uid)
	assert.False(t, ok)

	view, err = h.svc.Position(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, view.SpecialAction)
	assert.Equal(t, "treasure", view.SpecialAction.Type)

	conns, err := h.svc.Connections(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func TestPosition_StoreFailureIsLoggedAndInternal(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	require.NoError(t, h.db.Close())

	_, err := h.svc.Position(context.Background(), uid)
	assert.ErrorIs(t, err, gameerr.ErrInternal)
	entries := h.logs.FilterMessage("game operation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "load_position", entries[0].ContextMap()["operation"])
	assert.Equal(t, uid, entries[0].ContextMap()["user_id"])
}

func TestPerformSpecialAction_Treasure(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()
	h.place(t, road(70))

	res, err := h.svc.PerformSpecialAction(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "treasure", res.Type)
	assert.Equal(t, 25, res.GoldGained)

	p, err := h.svc.Player(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 75, p.Gold)
}

func TestPerformSpecialAction_TreasureOpensOnce(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()
	h.place(t, road(70))

	_, err := h.svc.PerformSpecialAction(ctx, uid)
	require.NoError(t, err)
	for range 100 {
		_, err = h.svc.PerformSpecialAction(ctx, uid)
		require.ErrorIs(t, err, gameerr.ErrNoSpecialAction)
	}

	_, err = h.svc.Move(ctx, uid, "backward", 10)
	require.NoError(t, err)
	_, err = h.svc.Move(ctx, uid, "forward", 10)
	require.NoError(t, err)
	require.Equal(t, road(70), h.stored(t))
	_, err = h.svc.PerformSpecialAction(ctx, uid)
	assert.ErrorIs(t, err, gameerr.ErrNoSpecialAction)

	p, err := h.svc.Player(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 75, p.Gold)
}

func TestPerformSpecialAction_Rest(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()
	h.place(t, cave(20))

	p, err := h.svc.Player(ctx, uid)
	require.NoError(t, err)
	p.HP, p.MP, p.SP = 5, 0, 1
	require.NoError(t, h.players.SaveVitals(ctx, p))

	_, err = h.svc.PerformSpecialAction(ctx, uid)
	require.NoError(t, err)
	p, err = h.svc.Player(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, p.MaxHP, p.HP)
	assert.Equal(t, p.MaxMP, p.MP)
	assert.Equal(t, p.MaxSP, p.SP)
}

func TestPerformSpecialAction_Teleport(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	h.place(t, forest(teleportPosition))

	res, err := h.svc.PerformSpecialAction(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "teleport", res.Type)
	assert.Equal(t, cave(10), res.Player.Position)
	assert.Equal(t, cave(10), h.stored(t))
}

func TestPerformSpecialAction_BossBecomesPendingEncounter(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()
	h.place(t, cave(90))

	res, err := h.svc.PerformSpecialAction(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, res.Encounter)
	assert.Equal(t, "goblin_king", res.Encounter.ID)

	enc, ok := h.sessions.PendingEncounter(uid)
	require.True(t, ok)
	assert.True(t, enc.Boss)

	br, err := h.svc.StartBattle(ctx, uid, "goblin_king")
	require.NoError(t, err)
	assert.Equal(t, battle.InProgress, br.State)
	assert.Equal(t, 120, br.Monster.Stats.HP)
	assert.Equal(t, 1, h.logs.FilterMessage("boss battle started").Len())
}

func TestPerformSpecialAction_NothingHere(t *testing.T) {
	h := newHarness(t, fixedSource{fail})
	ctx := context.Background()

	_, err := h.svc.PerformSpecialAction(ctx, uid)
	assert.ErrorIs(t, err, gameerr.ErrNoSpecialAction)

	h.place(t, road(30))
	_, err = h.svc.PerformSpecialAction(ctx, uid)
	assert.ErrorIs(t, err, gameerr.ErrNoSpecialAction)
}

func TestStartBattle_RequiresMatchingEncounter(t *testing.T) {
	h := newHarness(t, fixedSource{pass})
	ctx := context.Background()

	_, err := h.svc.StartBattle(ctx, uid, "slime")
	assert.ErrorIs(t, err, gameerr.ErrNoEncounter)

	h.place(t, road(30))
	_, err = h.svc.Move(ctx, uid, "forward", 10)
	require.NoError(t, err)

	_, err = h.svc.StartBattle(ctx, uid, "goblin")
	assert.ErrorIs(t, err, gameerr.ErrEncounterMismatch)
	_, ok := h.sessions.PendingEncounter(uid)
	assert.True(t, ok)
}

func TestStartBattle_EncounterLeftBehind(t *testing.T) {
	h := newHarness(t, fixedSource{pass})
	ctx := context.Background()
	h.place(t, road(30))
	_, err := h.svc.Move(ctx, uid, "forward", 10)
	require.NoError(t, err)

	// The player is moved out of band; the encounter stays on the road.
	h.place(t, player.Position{LocationType: world.Town, LocationID: worldtest.TownA})
	_, err = h.svc.StartBattle(ctx, uid, "")
	assert.ErrorIs(t, err, gameerr.ErrNoEncounter)
	_, ok := h.sessions.PendingEncounter(uid)
	assert.False(t, ok)
}

func TestBattle_VictoryWritesHistory(t *testing.T) {
	h := newHarness(t, fixedSource{pass})
	ctx := context.Background()
	h.place(t, road(30))
	_, err := h.svc.Move(ctx, uid, "forward", 10)
	require.NoError(t, err)

	res, err := h.svc.StartBattle(ctx, uid, "slime")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Turn)
	_, ok := h.sessions.PendingEncounter(uid)
	assert.False(t, ok)

	_, err = h.svc.Move(ctx, uid, "forward", 1)
	assert.ErrorIs(t, err, gameerr.ErrBattleInProgress)
	_, err = h.svc.PerformSpecialAction(ctx, uid)
	assert.ErrorIs(t, err, gameerr.ErrBattleInProgress)

	cur, err := h.svc.CurrentBattle(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, res.BattleID, cur.BattleID)

	for i := 0; i < 10 && !res.State.Terminal(); i++ {
		res, err = h.svc.Attack(ctx, uid)
		require.NoError(t, err)
	}
	require.Equal(t, battle.Victory, res.State)
	require.NotNil(t, res.Rewards)
	assert.Equal(t, 15, res.Rewards.Gold)

	_, err = h.svc.CurrentBattle(ctx, uid)
	assert.ErrorIs(t, err, gameerr.ErrNoActiveBattle)

	hist, err := h.svc.History(ctx, uid, 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "victory", hist[0].Result)
	assert.Equal(t, "Slime", hist[0].MonsterName)
	assert.Equal(t, 40, hist[0].ExperienceGained)
	assert.NotEmpty(t, hist[0].BattleData)

	p, err := h.svc.Player(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 65, p.Gold)
	assert.Equal(t, road(40), p.Position)
}

func TestBattle_ActionsWithoutBattle(t *testing.T) {
	h := newHarness(t, fixedSource{pass})
	ctx := context.Background()

	_, err := h.svc.Attack(ctx, uid)
	assert.ErrorIs(t, err, gameerr.ErrNoActiveBattle)
	_, err = h.svc.Defend(ctx, uid)
	assert.ErrorIs(t, err, gameerr.ErrNoActiveBattle)
	_, err = h.svc.Escape(ctx, uid)
	assert.ErrorIs(t, err, gameerr.ErrNoActiveBattle)
	_, err = h.svc.UseSkill(ctx, uid, "power_strike")
	assert.ErrorIs(t, err, gameerr.ErrNoActiveBattle)
}

func TestEndBattle_IsIdempotentAndClearsEncounter(t *testing.T) {
	h := newHarness(t, fixedSource{pass})
	ctx := context.Background()
	h.place(t, road(30))
	_, err := h.svc.Move(ctx, uid, "forward", 10)
	require.NoError(t, err)
	_, err = h.svc.StartBattle(ctx, uid, "")
	require.NoError(t, err)

	res, err := h.svc.EndBattle(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, battle.ForcedEnd, res.State)

	res, err = h.svc.EndBattle(ctx, uid)
	require.NoError(t, err)
	assert.True(t, res.Success)

	hist, err := h.svc.History(ctx, uid, 5)
	require.NoError(t, err)
	assert.Empty(t, hist)

	_, err = h.svc.Move(ctx, uid, "forward", 1)
	assert.NoError(t, err)
}

func TestBattle_UseSkillSpendsSP(t *testing.T) {
	h := newHarness(t, fixedSource{pass})
	ctx := context.Background()
	h.place(t, road(30))
	_, err := h.svc.Move(ctx, uid, "forward", 10)
	require.NoError(t, err)
	_, err = h.svc.StartBattle(ctx, uid, "")
	require.NoError(t, err)

	res, err := h.svc.UseSkill(ctx, uid, "power_strike")
	require.NoError(t, err)
	assert.Equal(t, 15, res.Character.SP)

	_, err = h.svc.UseSkill(ctx, uid, "fireball")
	assert.ErrorIs(t, err, gameerr.ErrUnknownSkill)
}

func TestBattle_EscapeRetriesUntilAway(t *testing.T) {
	src := &switchSource{val: pass}
	h := newHarness(t, src)
	ctx := context.Background()
	h.place(t, road(30))
	_, err := h.svc.Move(ctx, uid, "forward", 10)
	require.NoError(t, err)
	_, err = h.svc.StartBattle(ctx, uid, "")
	require.NoError(t, err)

	src.set(fail)
	res, err := h.svc.Escape(ctx, uid)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, battle.InProgress, res.State)
	assert.Equal(t, 2, res.Turn)

	src.set(pass)
	res, err = h.svc.Escape(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, battle.Escaped, res.State)

	hist, err := h.svc.History(ctx, uid, 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "escaped", hist[0].Result)
	assert.Zero(t, hist[0].GoldGained)
}
