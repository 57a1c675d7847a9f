package notification

import (
	"context"
	"testing"
	"time"

	"notification_hub/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		NotificationTTL:    7 * 24 * time.Hour,
		WriteBehindTimeout: 5 * time.Second,
		StreamKeepAlive:    time.Hour,
		ServerPort:         "8080",
		RedisAddr:          "unused",
	}
}

// newTestStore starts an in-process redis and returns a RedisStore on it.
func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func newTestService(t *testing.T) (*ServiceImplementation, *RedisStore, *miniredis.Miniredis) {
	t.Helper()
	store, mr := newTestStore(t)
	return newService(store, testConfig(), zap.NewNop()), store, mr
}

// createAndWait runs Create and blocks until its background write finished.
func createAndWait(t *testing.T, s *ServiceImplementation, recipient string, req CreateRequest) *Notification {
	t.Helper()
	n, err := s.Create(context.Background(), recipient, req)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	return n
}

func ms(v int64) *int64 { return &v }
