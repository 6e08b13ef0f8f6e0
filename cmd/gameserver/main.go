// Package main runs the game server: it loads content, opens the configured
// store and serves wayfarer.v1.GameService over gRPC.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/config"
	"github.com/cory-johannsen/wayfarer/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "gameserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting game server",
		zap.String("grpc_addr", cfg.GameServer.Addr()),
		zap.String("storage", cfg.Storage.Driver),
	)

	ctx := context.Background()
	a, cleanup, err := initializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initializing game server", zap.Error(err))
	}
	defer cleanup()

	logger.Info("game server ready", zap.Duration("startup", time.Since(start)))
	if err := a.lifecycle.Run(ctx); err != nil {
		logger.Error("game server stopped with error", zap.Error(err))
		cleanup()
		_ = logger.Sync()
		log.Fatalf("game server: %v", err)
	}
}
