package client

import (
	"context"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"notification_hub/internal/common"
	"notification_hub/internal/config"
	"notification_hub/internal/identity"
	"notification_hub/internal/middleware"
	"notification_hub/internal/notification"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "client-test-secret"

// testServer runs the real notification API on an in-process redis.
type testServer struct {
	srv     *httptest.Server
	service notification.Service
	// blockStream makes the events endpoint answer 503 while set.
	blockStream atomic.Bool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		NotificationTTL:    7 * 24 * time.Hour,
		WriteBehindTimeout: 5 * time.Second,
		StreamKeepAlive:    time.Hour,
	}
	logger := zap.NewNop()
	ts := &testServer{service: notification.NewService(notification.NewRedisStore(rc), cfg, logger)}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/notifications", middleware.Identity(identity.NewJWTResolver(testSecret), logger))
	notification.NewHandler(ts.service, cfg, logger).RegisterRoutes(group)
	gateway := notification.NewGateway(ts.service, cfg, logger)
	group.GET("/events", func(c *gin.Context) {
		if ts.blockStream.Load() {
			common.RespondWithError(c, common.ErrServiceUnavailable)
			return
		}
		gateway.Stream(c)
	})

	ts.srv = httptest.NewServer(router)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = gateway.Shutdown(ctx)
		ts.srv.Close()
		_ = ts.service.Wait(ctx)
		_ = rc.Close()
	})
	return ts
}

// create stores n for recipient and waits until it is persisted and published.
func (ts *testServer) create(t *testing.T, recipient string, req notification.CreateRequest) {
	t.Helper()
	_, err := ts.service.Create(context.Background(), recipient, req)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.service.Wait(ctx))
}

func (ts *testServer) list(t *testing.T, recipient string) []notification.Notification {
	t.Helper()
	items, err := ts.service.List(context.Background(), recipient)
	require.NoError(t, err)
	return items
}

type recordingToaster struct {
	mu       sync.Mutex
	notified []string
	errors   []string
}

func (r *recordingToaster) Notify(n notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, n.ID)
}

func (r *recordingToaster) Error(action string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, action)
}

func (r *recordingToaster) Notified() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notified...)
}

func (r *recordingToaster) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

// MockAPI is a mock type for the API interface
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) List(ctx context.Context) ([]notification.Notification, error) {
	args := m.Called(ctx)
	var items []notification.Notification
	if args.Get(0) != nil {
		items = args.Get(0).([]notification.Notification)
	}
	return items, args.Error(1)
}

func (m *MockAPI) DeleteOne(ctx context.Context, id string) (*notification.DeleteResult, error) {
	args := m.Called(ctx, id)
	var res *notification.DeleteResult
	if args.Get(0) != nil {
		res = args.Get(0).(*notification.DeleteResult)
	}
	return res, args.Error(1)
}

func (m *MockAPI) DeleteAll(ctx context.Context) (*notification.DeleteAllResult, error) {
	args := m.Called(ctx)
	var res *notification.DeleteAllResult
	if args.Get(0) != nil {
		res = args.Get(0).(*notification.DeleteAllResult)
	}
	return res, args.Error(1)
}

func (m *MockAPI) MarkRead(ctx context.Context, id string) (*notification.MarkReadResult, error) {
	args := m.Called(ctx, id)
	var res *notification.MarkReadResult
	if args.Get(0) != nil {
		res = args.Get(0).(*notification.MarkReadResult)
	}
	return res, args.Error(1)
}

func (m *MockAPI) MarkAllRead(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func ids(items []notification.Notification) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.ID
	}
	return out
}

func note(id string, createdAt int64) notification.Notification {
	return notification.Notification{ID: id, CreatedAt: createdAt, Text: "t-" + id}
}

func ms(v int64) *int64 { return &v }
