package client

import (
	"encoding/json"
	"sync"
	"time"

	"notification_hub/internal/notification"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Reconciler applies streamed notifications to the cache exactly once.
// Events are queued FIFO and drained by a single goroutine that stops when the
// queue is empty and is restarted by the next Enqueue.
type Reconciler struct {
	cache   *Cache
	toaster Toaster
	delay   time.Duration
	logger  *zap.Logger

	// handled holds ids already applied during this process's lifetime.
	// Entries outlive the server-side retention and are pruned after it.
	handled *gocache.Cache

	mu       sync.Mutex
	queue    []notification.Notification
	draining bool
	closed   bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewReconciler creates a Reconciler. retention bounds how long handled ids are
// remembered; delay is the pause between processed items.
func NewReconciler(cache *Cache, toaster Toaster, retention, delay time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		cache:   cache,
		toaster: toaster,
		delay:   delay,
		logger:  logger.Named("Reconciler"),
		// No janitor goroutine; Prune runs on the refresh schedule.
		handled: gocache.New(retention, 0),
		done:    make(chan struct{}),
	}
}

// HandleEvent is the stream listener for notification events.
func (r *Reconciler) HandleEvent(data string) {
	var n notification.Notification
	if err := json.Unmarshal([]byte(data), &n); err != nil || n.ID == "" {
		r.logger.Warn("Ignoring malformed notification event", zap.String("data", data), zap.Error(err))
		return
	}
	r.Enqueue(n)
}

// Enqueue queues n and starts the drainer if it is idle.
func (r *Reconciler) Enqueue(n notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.queue = append(r.queue, n)
	if !r.draining {
		r.draining = true
		r.wg.Add(1)
		go r.drain()
	}
}

func (r *Reconciler) drain() {
	defer r.wg.Done()
	for {
		r.mu.Lock()
		if r.closed || len(r.queue) == 0 {
			r.draining = false
			r.mu.Unlock()
			return
		}
		n := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		r.process(n)

		if r.delay > 0 {
			select {
			case <-time.After(r.delay):
			case <-r.done:
			}
		}
	}
}

func (r *Reconciler) process(n notification.Notification) {
	if _, ok := r.handled.Get(n.ID); ok {
		r.logger.Debug("Skipping already handled notification", zap.String("id", n.ID))
		return
	}
	// The periodic refresh may have delivered it first.
	if r.cache.Has(n.ID) {
		r.logger.Debug("Skipping cached notification", zap.String("id", n.ID))
		return
	}

	r.cache.Insert(n)
	r.handled.SetDefault(n.ID, struct{}{})

	if r.toaster == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.toaster.Notify(n)
	}()
}

// Handled reports whether id was applied from the stream.
func (r *Reconciler) Handled(id string) bool {
	_, ok := r.handled.Get(id)
	return ok
}

// Prune drops handled ids older than the retention window.
func (r *Reconciler) Prune() {
	r.handled.DeleteExpired()
}

// Close drops anything still queued and waits for the drainer and pending toasts.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.queue = nil
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
}
