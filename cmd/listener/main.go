// File: cmd/listener/main.go
// Command listener follows one session's notifications from the terminal:
// it keeps the shared stream open, reconciles streamed events into its local
// list and logs each new notification as a toast.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"notification_hub/internal/client"
	"notification_hub/internal/config"
	"notification_hub/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer logger.Sync(appLogger)

	c := client.New(cfg, client.NewLogToaster(appLogger), appLogger)

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start notification client", zap.Error(err))
	}
	appLogger.Info("Listening for notifications",
		zap.String("api", cfg.NotifyAPIURL),
		zap.Int("cached", len(c.Cache().Items())),
		zap.Int("unread", c.Cache().UnreadCount()),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ServerTimeout)
	defer cancel()
	if err := c.Close(shutdownCtx); err != nil {
		appLogger.Warn("Notification client did not stop cleanly", zap.Error(err))
	}
	appLogger.Info("Listener exiting", zap.Int("unread", c.Cache().UnreadCount()))
}
