// Package client is the consumer side of the notification stream: one shared
// stream connection, a reconciliation queue that applies streamed events to a
// local read model exactly once, and a periodic refresh that catches up on
// anything the stream missed.
package client

import (
	"context"
	"fmt"
	"sync"

	"notification_hub/internal/config"
	"notification_hub/internal/jobs"
	"notification_hub/internal/notification"

	"go.uber.org/zap"
)

// Client wires the stream, reconciler, cache and their timers together.
type Client struct {
	cfg        *config.Config
	logger     *zap.Logger
	api        *APIClient
	stream     *Stream
	cache      *Cache
	reconciler *Reconciler
	scheduler  *jobs.Scheduler

	mu         sync.Mutex
	unregister []func()
}

// New builds a Client for the session configured in cfg.
func New(cfg *config.Config, toaster Toaster, logger *zap.Logger) *Client {
	api := NewAPIClient(cfg.NotifyAPIURL, cfg.NotifySessionToken)
	return newClient(cfg, api, toaster, logger)
}

func newClient(cfg *config.Config, api *APIClient, toaster Toaster, logger *zap.Logger) *Client {
	named := logger.Named("NotificationClient")
	cache := NewCache(api, toaster, named)
	return &Client{
		cfg:        cfg,
		logger:     named,
		api:        api,
		stream:     NewStream(api, named),
		cache:      cache,
		reconciler: NewReconciler(cache, toaster, cfg.NotificationTTL, cfg.ClientQueueItemDelay, named),
		scheduler:  jobs.NewScheduler(named, cfg.ServerTimeout),
	}
}

func (c *Client) Cache() *Cache           { return c.cache }
func (c *Client) Stream() *Stream         { return c.stream }
func (c *Client) Reconciler() *Reconciler { return c.reconciler }

// Start loads the initial list, opens the stream and schedules the health check
// and the periodic refresh. A failed initial load is logged; the refresh retries it.
func (c *Client) Start(ctx context.Context) error {
	if err := c.cache.Refresh(ctx); err != nil {
		c.logger.Warn("Initial notification load failed", zap.Error(err))
	}

	c.mu.Lock()
	c.unregister = append(c.unregister,
		c.stream.AddListener(notification.EventNotification, c.reconciler.HandleEvent),
		c.stream.AddListener(notification.EventConnected, func(string) {
			c.logger.Debug("Notification stream connected")
		}),
	)
	c.mu.Unlock()

	if err := c.scheduler.Add("stream-health-check", c.cfg.ClientHealthCheckSchedule, func(context.Context) error {
		c.stream.HealthCheck()
		return nil
	}); err != nil {
		return fmt.Errorf("scheduling stream health check: %w", err)
	}
	if err := c.scheduler.Add("notification-refresh", c.cfg.ClientRefreshSchedule, func(ctx context.Context) error {
		c.reconciler.Prune()
		return c.cache.Refresh(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling notification refresh: %w", err)
	}
	c.scheduler.Start()
	return nil
}

// Close stops the timers, unregisters the listeners, closes the stream and
// drains the reconciler. No timer fires after Close returns.
func (c *Client) Close(ctx context.Context) error {
	err := c.scheduler.Stop(ctx)

	c.mu.Lock()
	unregister := c.unregister
	c.unregister = nil
	c.mu.Unlock()
	for _, fn := range unregister {
		fn()
	}

	c.stream.Close()
	c.reconciler.Close()
	return err
}
