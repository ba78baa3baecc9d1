package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationRegistry remembers tokens that were revoked before they expired
type RevocationRegistry interface {
	// Revoke adds a token. Revoking the same token twice is a no-op.
	Revoke(ctx context.Context, token string) error
	// IsRevoked reports whether the exact token string was revoked
	IsRevoked(ctx context.Context, token string) (bool, error)
	// Sweep removes entries that fail to decode or expired before now
	Sweep(ctx context.Context, now time.Time) (int, error)
	// Len returns the number of tracked entries
	Len(ctx context.Context) (int, error)
}

// ExpiryReader reads the expiry of a token regardless of whether it has passed
type ExpiryReader interface {
	PeekExpiry(token string) (time.Time, error)
}

// sweepable reports whether a revoked token no longer needs tracking
func sweepable(expiry ExpiryReader, token string, now time.Time) bool {
	exp, err := expiry.PeekExpiry(token)
	return err != nil || exp.Before(now)
}

// MemoryRegistry is an in-process RevocationRegistry
type MemoryRegistry struct {
	mu      sync.RWMutex
	revoked map[string]struct{}
	expiry  ExpiryReader
}

// NewMemoryRegistry creates an empty in-process registry
func NewMemoryRegistry(expiry ExpiryReader) *MemoryRegistry {
	return &MemoryRegistry{
		revoked: make(map[string]struct{}),
		expiry:  expiry,
	}
}

// Revoke implements RevocationRegistry
func (r *MemoryRegistry) Revoke(_ context.Context, token string) error {
	r.mu.Lock()
	r.revoked[token] = struct{}{}
	r.mu.Unlock()
	return nil
}

// IsRevoked implements RevocationRegistry
func (r *MemoryRegistry) IsRevoked(_ context.Context, token string) (bool, error) {
	r.mu.RLock()
	_, ok := r.revoked[token]
	r.mu.RUnlock()
	return ok, nil
}

// Sweep implements RevocationRegistry. Keys are snapshotted under the read
// lock and decoded without holding any lock; only the final delete takes the
// write lock.
func (r *MemoryRegistry) Sweep(ctx context.Context, now time.Time) (int, error) {
	r.mu.RLock()
	snapshot := make([]string, 0, len(r.revoked))
	for token := range r.revoked {
		snapshot = append(snapshot, token)
	}
	r.mu.RUnlock()

	var stale []string
	for _, token := range snapshot {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if sweepable(r.expiry, token, now) {
			stale = append(stale, token)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	for _, token := range stale {
		delete(r.revoked, token)
	}
	r.mu.Unlock()

	return len(stale), nil
}

// Len implements RevocationRegistry
func (r *MemoryRegistry) Len(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.revoked), nil
}
