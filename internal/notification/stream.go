package notification

import (
	"context"
	"io"
	"sync"
	"time"

	"notification_hub/internal/common"
	"notification_hub/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Gateway serves the per-connection server-push stream.
// Each connection moves Open -> Streaming -> Closed and owns exactly one subscription.
type Gateway struct {
	service   Service
	keepAlive time.Duration
	logger    *zap.Logger

	// mu orders admission (active.Add) against Shutdown closing done.
	mu     sync.Mutex
	closed bool
	done   chan struct{}
	active sync.WaitGroup
}

func NewGateway(service Service, cfg *config.Config, logger *zap.Logger) *Gateway {
	keepAlive := cfg.StreamKeepAlive
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &Gateway{
		service:   service,
		keepAlive: keepAlive,
		logger:    logger.Named("StreamGateway"),
		done:      make(chan struct{}),
	}
}

// RegisterRoutes mounts the stream under the notifications group.
func (g *Gateway) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/events", g.Stream)
}

// Stream subscribes to the caller's channel and the global channel and forwards
// every published payload until the client leaves or the gateway shuts down.
// Nothing published while a client is disconnected is replayed.
func (g *Gateway) Stream(c *gin.Context) {
	if !g.admit() {
		common.RespondWithError(c, common.ErrServiceUnavailable.WithDetails("Server is shutting down."))
		return
	}
	defer g.active.Done()

	recipient := common.GetRecipientFromContext(c)
	ctx := c.Request.Context()
	log := g.logger.With(zap.String("recipient", recipient))

	sub, err := g.service.Subscribe(ctx, recipient)
	if err != nil {
		log.Error("Stream subscribe failed", zap.Error(err))
		common.RespondWithError(c, ToAPIError(err))
		return
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Warn("Stream unsubscribe failed", zap.Error(err))
		}
		log.Debug("Stream closed")
	}()
	log.Debug("Stream open")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent(EventConnected, gin.H{"recipient": recipient})
	c.Writer.Flush()
	log.Debug("Streaming")

	ticker := time.NewTicker(g.keepAlive)
	defer ticker.Stop()
	messages := sub.Messages()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-g.done:
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent(EventNotification, msg.Payload)
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": keepalive\n\n")
			return err == nil
		}
	})
}

// Shutdown ends every open stream and waits for their subscriptions to be released.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	if !g.closed {
		g.closed = true
		close(g.done)
	}
	g.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		g.active.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// admit registers a new stream unless Shutdown has already begun.
func (g *Gateway) admit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.active.Add(1)
	return true
}
