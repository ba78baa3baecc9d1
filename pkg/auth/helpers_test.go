package auth

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/questlog/questlog/pkg/observability"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeStore struct {
	mu         sync.Mutex
	principals map[string]*Principal
	err        error
	lookups    int
}

func newFakeStore(t *testing.T, principals ...*Principal) *fakeStore {
	t.Helper()
	s := &fakeStore{principals: map[string]*Principal{}}
	for _, p := range principals {
		s.principals[p.Username] = p
	}
	return s
}

func (s *fakeStore) FindByUsername(_ context.Context, username string) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.principals[username]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	return p, nil
}

func testPrincipal(t *testing.T, id int64, username, password string) *Principal {
	t.Helper()
	hash, err := HashPasswordCost(password, bcrypt.MinCost)
	require.NoError(t, err)
	return &Principal{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
	}
}

func testCodec(t *testing.T, clock *fakeClock, lifetime time.Duration) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret, lifetime, WithClock(clock.Now))
	require.NoError(t, err)
	return codec
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

// failingRegistry returns err from every call
type failingRegistry struct {
	err error
}

func (r failingRegistry) Revoke(context.Context, string) error { return r.err }
func (r failingRegistry) IsRevoked(context.Context, string) (bool, error) {
	return false, r.err
}
func (r failingRegistry) Sweep(context.Context, time.Time) (int, error) { return 0, r.err }
func (r failingRegistry) Len(context.Context) (int, error)              { return 0, r.err }

var errRegistryDown = errors.New("registry unavailable")
