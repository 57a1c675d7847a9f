package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on redis lists and pub/sub.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new redis-backed notification store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) PushFront(ctx context.Context, key, value string) error {
	return storeErr("LPUSH", key, s.client.LPush(ctx, key, value).Err())
}

func (s *RedisStore) Range(ctx context.Context, key string) ([]string, error) {
	values, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, storeErr("LRANGE", key, err)
	}
	return values, nil
}

func (s *RedisStore) Remove(ctx context.Context, key, value string) (int64, error) {
	n, err := s.client.LRem(ctx, key, 1, value).Result()
	if err != nil {
		return 0, storeErr("LREM", key, err)
	}
	return n, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return storeErr("EXPIRE", key, s.client.Expire(ctx, key, ttl).Err())
}

// DeleteKey reads the length and deletes in one MULTI so the count matches what was dropped.
func (s *RedisStore) DeleteKey(ctx context.Context, key string) (int64, error) {
	var length *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		length = pipe.LLen(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return 0, storeErr("DEL", key, err)
	}
	return length.Val(), nil
}

func (s *RedisStore) Publish(ctx context.Context, channel, payload string) error {
	return storeErr("PUBLISH", channel, s.client.Publish(ctx, channel, payload).Err())
}

func (s *RedisStore) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("subscribe: no channels")
	}
	pubsub := s.client.Subscribe(ctx, channels...)
	// One confirmation per channel; after this, publishes are guaranteed to reach us.
	for range channels {
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, storeErr("SUBSCRIBE", channels[0], err)
		}
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan Message),
		done:   make(chan struct{}),
	}
	go sub.forward(pubsub.Channel())
	return sub, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return storeErr("PING", "", s.client.Ping(ctx).Err())
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	out       chan Message
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) forward(in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- Message{Channel: msg.Channel, Payload: msg.Payload}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan Message {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
