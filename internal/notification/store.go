package notification

import (
	"context"
	"time"
)

// Store is list-based storage keyed by list name, with TTL expiry and
// per-channel publish/subscribe. Values are serialized notifications.
type Store interface {
	// PushFront prepends value to the list at key.
	PushFront(ctx context.Context, key, value string) error
	// Range returns every entry, most recent first.
	Range(ctx context.Context, key string) ([]string, error)
	// Remove deletes one entry equal to value and reports how many were removed.
	Remove(ctx context.Context, key, value string) (int64, error)
	// Expire sets or refreshes the key's TTL.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// DeleteKey drops the whole list and returns how many entries it held.
	DeleteKey(ctx context.Context, key string) (int64, error)
	// Publish delivers payload to current subscribers of channel only.
	Publish(ctx context.Context, channel, payload string) error
	// Subscribe returns once the subscription is established.
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
	Ping(ctx context.Context) error
}

// Message is one published payload.
type Message struct {
	Channel string
	Payload string
}

// Subscription delivers messages in publish order per channel until closed.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}
