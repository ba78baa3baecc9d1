package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRevocationKey is the Redis set holding revoked tokens
const DefaultRevocationKey = "questlog:revoked_tokens"

// RedisRegistry is a RevocationRegistry shared by every instance pointed at
// the same Redis. Entries live in one set keyed by the exact token string.
type RedisRegistry struct {
	client *redis.Client
	key    string
	expiry ExpiryReader
}

// NewRedisRegistry creates a Redis-backed registry. An empty key selects DefaultRevocationKey.
func NewRedisRegistry(client *redis.Client, key string, expiry ExpiryReader) *RedisRegistry {
	if key == "" {
		key = DefaultRevocationKey
	}
	return &RedisRegistry{
		client: client,
		key:    key,
		expiry: expiry,
	}
}

// Revoke implements RevocationRegistry
func (r *RedisRegistry) Revoke(ctx context.Context, token string) error {
	if err := r.client.SAdd(ctx, r.key, token).Err(); err != nil {
		return fmt.Errorf("redis sadd failed: %w", err)
	}
	return nil
}

// IsRevoked implements RevocationRegistry
func (r *RedisRegistry) IsRevoked(ctx context.Context, token string) (bool, error) {
	revoked, err := r.client.SIsMember(ctx, r.key, token).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember failed: %w", err)
	}
	return revoked, nil
}

// Sweep implements RevocationRegistry. Members are read with SMEMBERS,
// decoded locally and removed with a single SREM.
func (r *RedisRegistry) Sweep(ctx context.Context, now time.Time) (int, error) {
	members, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers failed: %w", err)
	}

	var stale []interface{}
	for _, token := range members {
		if sweepable(r.expiry, token, now) {
			stale = append(stale, token)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	removed, err := r.client.SRem(ctx, r.key, stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis srem failed: %w", err)
	}
	return int(removed), nil
}

// Len implements RevocationRegistry
func (r *RedisRegistry) Len(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis scard failed: %w", err)
	}
	return int(n), nil
}
