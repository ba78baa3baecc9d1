package sso

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/observability"
	"github.com/questlog/questlog/pkg/storage"
	"github.com/questlog/questlog/pkg/users"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func newTestStore(t *testing.T) *users.SQLStore {
	t.Helper()
	ctx := context.Background()

	db, err := storage.OpenDatabase(ctx, storage.DatabaseConfig{
		Driver: storage.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "sso.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := users.NewSQLStore(ctx, db, storage.DriverSQLite)
	require.NoError(t, err)
	return store
}

func newTestAuthenticator(t *testing.T, store auth.CredentialStore) *auth.Authenticator {
	t.Helper()
	codec, err := auth.NewCodec([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	return auth.NewAuthenticator(store, codec, auth.NewMemoryRegistry(codec), testLogger(), nil)
}

// fakeProvider stands in for an identity provider
type fakeProvider struct {
	user      *SSOUser
	err       error
	callbacks int
}

func (p *fakeProvider) GetName() ProviderName { return ProviderGoogle }

func (p *fakeProvider) InitiateLogin(w http.ResponseWriter, r *http.Request, state string) error {
	http.Redirect(w, r, "https://idp.example/authorize?state="+state, http.StatusFound)
	return nil
}

func (p *fakeProvider) HandleCallback(context.Context, *http.Request) (*SSOUser, error) {
	p.callbacks++
	return p.user, p.err
}
