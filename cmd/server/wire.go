// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"notification_hub/internal/app"
	"notification_hub/internal/config"
	"notification_hub/internal/firebase"
	"notification_hub/internal/identity"
	"notification_hub/internal/notification"
	"notification_hub/internal/platform/logger"
	"notification_hub/internal/platform/redis"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		redis.NewClient,

		// Identity
		firebase.NewFirebaseService,
		identity.NewResolver,

		// Notifications
		notification.NewRedisStore,
		wire.Bind(new(notification.Store), new(*notification.RedisStore)),
		notification.NewService,
		notification.NewHandler,
		notification.NewGateway,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
