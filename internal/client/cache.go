package client

import (
	"context"
	"sort"
	"sync"

	"notification_hub/internal/common"
	"notification_hub/internal/notification"

	"go.uber.org/zap"
)

// API is the part of the notification API the cache reads from and mutates through.
type API interface {
	List(ctx context.Context) ([]notification.Notification, error)
	DeleteOne(ctx context.Context, id string) (*notification.DeleteResult, error)
	DeleteAll(ctx context.Context) (*notification.DeleteAllResult, error)
	MarkRead(ctx context.Context, id string) (*notification.MarkReadResult, error)
	MarkAllRead(ctx context.Context) (int64, error)
}

// Cache is the client's read model: the merged list, newest first.
//
// Mutations are applied locally first, mirroring what the server will do:
// personal entries disappear, global entries turn read. If the call fails the
// error is toasted and returned, and the cache is rebuilt from a fresh List.
type Cache struct {
	api     API
	toaster Toaster
	logger  *zap.Logger

	mu    sync.RWMutex
	items []notification.Notification
	// While a refresh is in flight, inserts are also kept in pending so the
	// snapshot it installs cannot drop them.
	refreshing int
	pending    []notification.Notification
}

func NewCache(api API, toaster Toaster, logger *zap.Logger) *Cache {
	return &Cache{
		api:     api,
		toaster: toaster,
		logger:  logger.Named("Cache"),
	}
}

// Refresh replaces the cached list with the server's view. Items inserted while
// the List call was in flight are carried over into the new view.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.refreshing++
	c.mu.Unlock()

	items, err := c.api.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshing--
	carried := c.pending
	if c.refreshing == 0 {
		c.pending = nil
	}
	if err != nil {
		c.logger.Warn("Refresh failed", zap.Error(err))
		return err
	}

	notification.SortNewestFirst(items)
	c.items = items
	for _, n := range carried {
		c.insertLocked(n)
	}
	return nil
}

// Has reports whether id is in the cache.
func (c *Cache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexLocked(id) >= 0
}

// Insert adds n at its position in newest-first order. It reports false if the
// id is already cached.
func (c *Cache) Insert(n notification.Notification) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.insertLocked(n) {
		return false
	}
	if c.refreshing > 0 {
		c.pending = append(c.pending, n)
	}
	return true
}

func (c *Cache) insertLocked(n notification.Notification) bool {
	if c.indexLocked(n.ID) >= 0 {
		return false
	}
	i := sort.Search(len(c.items), func(i int) bool {
		it := c.items[i]
		if it.CreatedAt != n.CreatedAt {
			return it.CreatedAt < n.CreatedAt
		}
		return it.ID < n.ID
	})
	c.items = append(c.items, notification.Notification{})
	copy(c.items[i+1:], c.items[i:])
	c.items[i] = n
	return true
}

// Items returns a copy of the cached list.
func (c *Cache) Items() []notification.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]notification.Notification, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cache) UnreadCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return notification.UnreadCount(c.items)
}

// Page returns one page of the cached list.
func (c *Cache) Page(page, pageSize int) ([]notification.Notification, *common.Pagination) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := common.NewPagination(int64(len(c.items)), page, pageSize)
	start, end := p.Bounds()
	out := make([]notification.Notification, end-start)
	copy(out, c.items[start:end])
	return out, p
}

func (c *Cache) DeleteOne(ctx context.Context, id string) error {
	c.mu.Lock()
	if i := c.indexLocked(id); i >= 0 {
		if c.items[i].IsGlobal {
			c.items[i].Read = true
		} else {
			c.items = append(c.items[:i], c.items[i+1:]...)
		}
	}
	c.updatePendingLocked(func(n *notification.Notification) bool {
		if n.ID != id {
			return true
		}
		n.Read = true
		return n.IsGlobal
	})
	c.mu.Unlock()

	_, err := c.api.DeleteOne(ctx, id)
	return c.settle(ctx, "delete notification", err)
}

func (c *Cache) DeleteAll(ctx context.Context) error {
	c.mu.Lock()
	kept := c.items[:0]
	for _, n := range c.items {
		if n.IsGlobal {
			n.Read = true
			kept = append(kept, n)
		}
	}
	c.items = kept
	c.updatePendingLocked(func(n *notification.Notification) bool {
		n.Read = true
		return n.IsGlobal
	})
	c.mu.Unlock()

	_, err := c.api.DeleteAll(ctx)
	return c.settle(ctx, "delete notifications", err)
}

func (c *Cache) MarkRead(ctx context.Context, id string) error {
	c.mu.Lock()
	if i := c.indexLocked(id); i >= 0 {
		c.items[i].Read = true
	}
	c.updatePendingLocked(func(n *notification.Notification) bool {
		if n.ID == id {
			n.Read = true
		}
		return true
	})
	c.mu.Unlock()

	_, err := c.api.MarkRead(ctx, id)
	return c.settle(ctx, "mark notification as read", err)
}

func (c *Cache) MarkAllRead(ctx context.Context) error {
	c.mu.Lock()
	for i := range c.items {
		c.items[i].Read = true
	}
	c.updatePendingLocked(func(n *notification.Notification) bool {
		n.Read = true
		return true
	})
	c.mu.Unlock()

	_, err := c.api.MarkAllRead(ctx)
	return c.settle(ctx, "mark notifications as read", err)
}

// settle surfaces a failed mutation and reconciles the optimistic change from the server.
func (c *Cache) settle(ctx context.Context, action string, err error) error {
	if err == nil {
		return nil
	}
	c.logger.Warn("Mutation failed, reconciling from server", zap.String("action", action), zap.Error(err))
	if c.toaster != nil {
		c.toaster.Error(action, err)
	}
	_ = c.Refresh(ctx)
	return err
}

func (c *Cache) indexLocked(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

// updatePendingLocked applies fn to each pending insert and keeps those it returns true for.
func (c *Cache) updatePendingLocked(fn func(n *notification.Notification) bool) {
	kept := c.pending[:0]
	for i := range c.pending {
		if fn(&c.pending[i]) {
			kept = append(kept, c.pending[i])
		}
	}
	c.pending = kept
}
