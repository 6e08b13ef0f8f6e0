//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/config"
)

func initializeApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, func(), error) {
	wire.Build(
		provideStores,
		contentSet,
		engineSet,
		serverSet,
	)
	return nil, nil, nil
}
