package gameserver_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/game/encounter"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/session"
	"github.com/cory-johannsen/wayfarer/internal/game/skill"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/game/world/worldtest"
	"github.com/cory-johannsen/wayfarer/internal/gameserver"
	"github.com/cory-johannsen/wayfarer/internal/storage/sqlite"
)

const uid int64 = 1

// Draws below 1000 pass every default chance; draws of 9999 fail them all.
const (
	pass = 0
	fail = 9999
)

// fixedSource always draws val, capped below n. It is safe for concurrent use.
type fixedSource struct{ val int }

func (f fixedSource) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

// switchSource draws from whatever value was last set.
type switchSource struct {
	mu  sync.Mutex
	val int
}

func (s *switchSource) set(v int) {
	s.mu.Lock()
	s.val = v
	s.mu.Unlock()
}

func (s *switchSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.val >= n {
		return n - 1
	}
	return s.val
}

// teleportPosition is a teleport added to the forest path for these tests.
const teleportPosition = 60

func testGraph(t *testing.T) *world.Graph {
	t.Helper()
	locs := worldtest.Locations()
	for _, l := range locs {
		if l.ID == worldtest.Forest {
			l.SpecialActions = []world.SpecialAction{
				{Position: teleportPosition, Type: world.ActionTeleport, Label: "A shimmering portal", TargetLocation: worldtest.Cave, TargetPosition: 10},
			}
		}
	}
	g, err := world.NewGraph(locs, worldtest.Connections())
	require.NoError(t, err)
	require.NoError(t, g.ValidateConnections())
	return g
}

func testCatalog(t *testing.T) *monster.Catalog {
	t.Helper()
	c, err := monster.NewCatalog([]*monster.Template{
		{ID: "slime", Name: "Slime", Emoji: "🟢", Level: 1, Stats: monster.TemplateStats{MaxHP: 30, Attack: 5, ExperienceReward: 40, GoldReward: 15}},
		{ID: "goblin", Name: "Goblin", Level: 3, Stats: monster.TemplateStats{MaxHP: 45, Attack: 9, Defense: 2}},
		{ID: "wolf", Name: "Wolf", Level: 2, Stats: monster.TemplateStats{MaxHP: 35, Attack: 8}},
		{ID: "goblin_king", Name: "Goblin King", Level: 6, Stats: monster.TemplateStats{MaxHP: 120, Attack: 18, Defense: 6}},
	})
	require.NoError(t, err)
	return c
}

func testSkills(t *testing.T) *skill.Registry {
	t.Helper()
	r, err := skill.NewRegistry([]*skill.Skill{
		{ID: "power_strike", Name: "Power Strike", Effect: skill.EffectDamage, CostType: skill.CostSP, Cost: 5, Power: 8},
	})
	require.NoError(t, err)
	return r
}

type harness struct {
	svc      *gameserver.Service
	db       *sqlite.DB
	players  *sqlite.PlayerRepository
	sessions *session.Manager
	logs     *observer.ObservedLogs
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	rules   gameserver.Rules
	players func(*sqlite.PlayerRepository) gameserver.PlayerStore
}

func withRules(fn func(*gameserver.Rules)) harnessOption {
	return func(c *harnessConfig) { fn(&c.rules) }
}

func withPlayerStore(wrap func(*sqlite.PlayerRepository) gameserver.PlayerStore) harnessOption {
	return func(c *harnessConfig) { c.players = wrap }
}

// newHarness builds a Service over an in-memory SQLite store and the
// fixture graph, with user uid already created in town_a.
func newHarness(t *testing.T, src dice.Source, opts ...harnessOption) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := harnessConfig{
		rules: gameserver.DefaultRules(),
		players: func(r *sqlite.PlayerRepository) gameserver.PlayerStore {
			return r
		},
	}
	cfg.rules.StartLocation = worldtest.TownA
	cfg.rules.StarterSkills = []string{"power_strike"}
	for _, opt := range opts {
		opt(&cfg)
	}

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	repo := sqlite.NewPlayerRepository(db)
	players := cfg.players(repo)
	graph := testGraph(t)
	catalog := testCatalog(t)
	sessions := session.NewManager()

	balance := battle.DefaultBalance()
	balance.DefeatTown = worldtest.TownA
	engine := battle.NewEngine(sqlite.NewBattleRepository(db), players, testSkills(t), src, balance, logger,
		battle.WithInvalidator(sessions),
		battle.WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	)
	svc := gameserver.NewService(
		graph,
		catalog,
		players,
		sqlite.NewHistoryRepository(db),
		engine,
		encounter.NewEngine(graph, catalog, src, logger),
		sessions,
		dice.NewLoggedRoller(src, logger),
		cfg.rules,
		logger,
	)

	h := &harness{svc: svc, db: db, players: repo, sessions: sessions, logs: logs}
	_, err = svc.CreatePlayer(ctx, uid, "Ayla")
	require.NoError(t, err)
	return h
}

// place moves uid directly in the store, bypassing movement rules.
func (h *harness) place(t *testing.T, pos player.Position) {
	t.Helper()
	ctx := context.Background()
	cur, err := h.players.Position(ctx, uid)
	require.NoError(t, err)
	require.NoError(t, h.players.UpdatePosition(ctx, uid, cur, pos))
	h.sessions.Purge(uid)
}

func (h *harness) stored(t *testing.T) player.Position {
	t.Helper()
	pos, err := h.players.Position(context.Background(), uid)
	require.NoError(t, err)
	return pos
}

func road(p int) player.Position {
	return player.Position{LocationType: world.Road, LocationID: worldtest.RoadR, Position: p}
}

func forest(p int) player.Position {
	return player.Position{LocationType: world.Road, LocationID: worldtest.Forest, Position: p}
}

func cave(p int) player.Position {
	return player.Position{LocationType: world.Dungeon, LocationID: worldtest.Cave, Position: p}
}
