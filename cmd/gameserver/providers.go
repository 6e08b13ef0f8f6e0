package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/cory-johannsen/wayfarer/internal/config"
	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/game/encounter"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/session"
	"github.com/cory-johannsen/wayfarer/internal/game/skill"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/gameserver"
	"github.com/cory-johannsen/wayfarer/internal/scripting"
	"github.com/cory-johannsen/wayfarer/internal/server"
	"github.com/cory-johannsen/wayfarer/internal/storage/postgres"
	"github.com/cory-johannsen/wayfarer/internal/storage/sqlite"
)

// stores groups the repositories of the selected backend.
type stores struct {
	Players gameserver.PlayerStore
	Battles battle.BattleStore
	History gameserver.HistoryStore
}

// app is everything main needs to run.
type app struct {
	lifecycle *server.Lifecycle
}

var contentSet = wire.NewSet(
	provideGraph,
	provideCatalog,
	provideSkills,
	wire.Bind(new(encounter.Spawner), new(*monster.Catalog)),
)

var engineSet = wire.NewSet(
	provideSource,
	dice.NewLoggedRoller,
	provideScripts,
	session.NewManager,
	provideBattleEngine,
	provideEncounterEngine,
	gameserver.RulesFromConfig,
	wire.FieldsOf(new(*stores), "Players", "History"),
	gameserver.NewService,
	gameserver.NewGameServer,
)

var serverSet = wire.NewSet(
	provideGRPC,
	provideApp,
)

// provideStores opens the configured backend.
func provideStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, func(), error) {
	start := time.Now()
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Info("sqlite store opened",
			zap.String("path", cfg.Storage.SQLitePath),
			zap.Duration("elapsed", time.Since(start)),
		)
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Warn("closing sqlite store", zap.Error(err))
			}
		}
		return &stores{
			Players: sqlite.NewPlayerRepository(db),
			Battles: sqlite.NewBattleRepository(db),
			History: sqlite.NewHistoryRepository(db),
		}, closeDB, nil
	default:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(start)),
		)
		return &stores{
			Players: pool.Players(),
			Battles: pool.Battles(),
			History: pool.History(),
		}, pool.Close, nil
	}
}

func provideGraph(cfg config.Config, logger *zap.Logger) (*world.Graph, error) {
	start := time.Now()
	g, err := world.LoadGraphFromDir(cfg.Content.LocationsDir)
	if err != nil {
		return nil, fmt.Errorf("loading locations: %w", err)
	}
	if _, err := g.GetLocation(world.Town, cfg.Game.StartLocation); err != nil {
		return nil, fmt.Errorf("game.start_location: %w", err)
	}
	if _, err := g.GetLocation(world.Town, cfg.Game.DefeatTown); err != nil {
		return nil, fmt.Errorf("game.defeat_town: %w", err)
	}
	logger.Info("world loaded",
		zap.Int("locations", g.LocationCount()),
		zap.Int("connections", g.ConnectionCount()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return g, nil
}

func provideCatalog(cfg config.Config, g *world.Graph, logger *zap.Logger) (*monster.Catalog, error) {
	c, err := monster.LoadCatalog(cfg.Content.MonstersDir)
	if err != nil {
		return nil, fmt.Errorf("loading monsters: %w", err)
	}
	if err := g.ValidateMonsters(c.Has); err != nil {
		return nil, err
	}
	logger.Info("monsters loaded", zap.Int("count", c.Len()))
	return c, nil
}

func provideSkills(cfg config.Config, logger *zap.Logger) (*skill.Registry, error) {
	r, err := skill.LoadRegistry(cfg.Content.SkillsDir)
	if err != nil {
		return nil, fmt.Errorf("loading skills: %w", err)
	}
	for _, id := range cfg.Game.StarterSkills {
		if _, ok := r.Get(id); !ok {
			return nil, fmt.Errorf("game.starter_skills: unknown skill %q", id)
		}
	}
	logger.Info("skills loaded", zap.Int("count", r.Len()))
	return r, nil
}

func provideSource() dice.Source {
	return dice.NewCryptoSource()
}

// provideScripts loads the Lua skill hooks. Every scripted skill must find
// its hook; with no scripts dir, scripted skills are rejected at startup.
func provideScripts(cfg config.Config, roller *dice.Roller, skills *skill.Registry, logger *zap.Logger) (*scripting.Manager, func(), error) {
	mgr := scripting.NewManager(roller, logger)
	cleanup := mgr.Close
	if dir := cfg.Content.ScriptsDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			if err := mgr.Load(dir, cfg.Content.ScriptInstLimit); err != nil {
				return nil, nil, err
			}
		} else {
			logger.Warn("skill scripts dir not found, skipping", zap.String("dir", dir))
		}
	}
	for _, sk := range skills.Scripted() {
		if !mgr.HasHook(sk.HookName()) {
			cleanup()
			return nil, nil, fmt.Errorf("skill %q: lua hook %q is not defined", sk.ID, sk.HookName())
		}
	}
	return mgr, cleanup, nil
}

func provideBattleEngine(
	st *stores,
	skills *skill.Registry,
	src dice.Source,
	cfg config.Config,
	scripts *scripting.Manager,
	sessions *session.Manager,
	logger *zap.Logger,
) *battle.Engine {
	return battle.NewEngine(st.Battles, st.Players, skills, src, gameserver.BalanceFromConfig(cfg), logger,
		battle.WithScripter(scripts),
		battle.WithInvalidator(sessions),
	)
}

func provideEncounterEngine(g *world.Graph, spawner encounter.Spawner, src dice.Source, logger *zap.Logger) *encounter.Engine {
	return encounter.NewEngine(g, spawner, src, logger)
}

// grpcParts carries the two values NewGRPCServer returns.
type grpcParts struct {
	server *grpc.Server
	health *health.Server
}

func provideGRPC(gs *gameserver.GameServer, logger *zap.Logger) grpcParts {
	s, hs := gameserver.NewGRPCServer(gs, logger)
	return grpcParts{server: s, health: hs}
}

func provideApp(cfg config.Config, parts grpcParts, logger *zap.Logger) *app {
	lc := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)
	lc.Add("grpc", server.NewGRPCService(cfg.GameServer.Addr(), parts.server, parts.health, logger, cfg.Server.ShutdownTimeout))
	return &app{lifecycle: lc}
}
