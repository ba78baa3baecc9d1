package middleware

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/observability"
)

type mapStore map[string]*auth.Principal

func (s mapStore) FindByUsername(_ context.Context, username string) (*auth.Principal, error) {
	p, ok := s[username]
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	copied := *p
	return &copied, nil
}

type fixture struct {
	authn *auth.Authenticator
	codec *auth.Codec
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	codec, err := auth.NewCodec([]byte("0123456789abcdef0123456789abcdef"), time.Hour,
		auth.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.codec = codec

	store := mapStore{
		"alice": {ID: 1, Username: "alice", Email: "alice@example.com"},
		"root":  {ID: 2, Username: "root", Email: "root@example.com", Admin: true},
	}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	f.authn = auth.NewAuthenticator(store, codec, auth.NewMemoryRegistry(codec), logger, nil)
	return f
}

func (f *fixture) token(t *testing.T, subject string) string {
	t.Helper()
	token, err := f.codec.Issue(subject, nil)
	require.NoError(t, err)
	return token
}
