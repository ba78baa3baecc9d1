package users

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

// DefaultInvalidationChannel carries usernames whose cached entry is stale
const DefaultInvalidationChannel = "questlog:principal_invalidations"

// Invalidator tells other instances to drop a cached user
type Invalidator interface {
	Publish(ctx context.Context, username string) error
}

// RedisInvalidator shares cache invalidations between instances over Redis
// pub/sub. Every instance, including the publisher, drops the entry.
type RedisInvalidator struct {
	client  *redis.Client
	channel string

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisInvalidator creates an invalidator on channel
func NewRedisInvalidator(client *redis.Client, channel string) *RedisInvalidator {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	return &RedisInvalidator{client: client, channel: channel}
}

// Publish announces that username changed
func (ri *RedisInvalidator) Publish(ctx context.Context, username string) error {
	if err := ri.client.Publish(ctx, ri.channel, username).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Start subscribes and applies invalidations to cache until Close. It
// returns once the subscription is confirmed.
func (ri *RedisInvalidator) Start(ctx context.Context, cache *CachedStore) error {
	pubsub := ri.client.Subscribe(ctx, ri.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", ri.channel, err)
	}

	done := make(chan struct{})
	ri.mu.Lock()
	ri.pubsub, ri.done = pubsub, done
	ri.mu.Unlock()

	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			cache.Invalidate(msg.Payload)
		}
	}()
	return nil
}

// Close ends the subscription and waits for the listener to exit
func (ri *RedisInvalidator) Close() error {
	ri.mu.Lock()
	pubsub, done := ri.pubsub, ri.done
	ri.pubsub, ri.done = nil, nil
	ri.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	return err
}
