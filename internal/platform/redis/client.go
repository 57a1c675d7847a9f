// File: internal/platform/redis/client.go
package redis

import (
	"context"
	"fmt"
	"time"

	"notification_hub/internal/config"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewClient creates a go-redis client from config and verifies the connection.
// It returns a cleanup func closing the client, for use by the injector.
func NewClient(cfg *config.Config, logger *zap.Logger) (*goredis.Client, func(), error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("Connected to redis", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	cleanup := func() {
		logger.Info("Closing redis connection...")
		if err := client.Close(); err != nil {
			logger.Error("Error closing redis connection", zap.Error(err))
		}
	}
	return client, cleanup, nil
}
