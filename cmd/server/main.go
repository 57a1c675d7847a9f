// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"
	"time"

	"notification_hub/internal/config"
	"notification_hub/internal/identity"
)

func main() {
	issueTokenCmd := flag.NewFlagSet("issue-token", flag.ExitOnError)
	recipient := issueTokenCmd.String("recipient", "", "Recipient id to issue a session token for")
	ttl := issueTokenCmd.Duration("ttl", 24*time.Hour, "Token lifetime")

	if len(os.Args) > 1 && os.Args[1] == "issue-token" {
		_ = issueTokenCmd.Parse(os.Args[2:])

		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("FATAL: Failed to load configuration: %v", err)
		}
		if cfg.SessionJWTSecret == "" {
			log.Fatal("FATAL: SESSION_JWT_SECRET must be set to issue session tokens")
		}
		token, err := identity.GenerateToken(cfg.SessionJWTSecret, *recipient, *ttl)
		if err != nil {
			log.Fatalf("FATAL: Failed to issue token for %q: %v", *recipient, err)
		}
		fmt.Println(token)
		return
	}

	// Default: Start server
	startServer()
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}
