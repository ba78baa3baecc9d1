package users

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/observability"
)

// CachedStore keeps recently resolved users in memory so the request gate
// does not hit the database on every call. Misses are not cached.
type CachedStore struct {
	Store
	cache       *lru.LRU[string, auth.Principal]
	metrics     *observability.Metrics
	invalidator Invalidator
}

// NewCachedStore wraps a store with a TTL-bounded LRU keyed by username
func NewCachedStore(store Store, size int, ttl time.Duration, metrics *observability.Metrics) *CachedStore {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedStore{
		Store:   store,
		cache:   lru.NewLRU[string, auth.Principal](size, nil, ttl),
		metrics: metrics,
	}
}

// FindByUsername serves from the cache when possible. Callers receive a
// copy and may modify it freely.
func (c *CachedStore) FindByUsername(ctx context.Context, username string) (*auth.Principal, error) {
	if p, ok := c.cache.Get(username); ok {
		c.metrics.RecordPrincipalCache(true)
		return &p, nil
	}
	c.metrics.RecordPrincipalCache(false)

	p, err := c.Store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	c.cache.Add(username, *p)
	return p, nil
}

// SetInvalidator makes mutations drop the entry on other instances too
func (c *CachedStore) SetInvalidator(inv Invalidator) {
	c.invalidator = inv
}

// SetAdmin updates the store and drops the stale cache entry here and,
// with an invalidator, on every other instance
func (c *CachedStore) SetAdmin(ctx context.Context, id int64, admin bool) (*auth.Principal, error) {
	p, err := c.Store.SetAdmin(ctx, id, admin)
	if err != nil {
		c.Purge()
		return nil, err
	}
	c.cache.Remove(p.Username)

	if c.invalidator != nil {
		if err := c.invalidator.Publish(ctx, p.Username); err != nil {
			observability.FromContext(ctx).
				WithError(err).
				WithField("username", p.Username).
				Warn("Failed to publish principal cache invalidation")
		}
	}
	return p, nil
}

// Invalidate drops a cached user
func (c *CachedStore) Invalidate(username string) {
	c.cache.Remove(username)
}

// Purge drops every cached user
func (c *CachedStore) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached users
func (c *CachedStore) Len() int {
	return c.cache.Len()
}
