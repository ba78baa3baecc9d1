package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/httputil"
	"github.com/questlog/questlog/pkg/middleware"
	"github.com/questlog/questlog/pkg/observability"
	"github.com/questlog/questlog/pkg/storage"
	"github.com/questlog/questlog/pkg/users"
)

const testPassword = "correct-horse"

type testEnv struct {
	server   *Server
	store    users.Store
	authn    *auth.Authenticator
	auditBuf *bytes.Buffer
	alice    *auth.Principal
	root     *auth.Principal
}

type envOption func(*Options)

func withLimiter(l middleware.Limiter) envOption {
	return func(o *Options) { o.CredentialLimiter = l }
}

func withTrustedProxies(t *testing.T, entries ...string) envOption {
	tp, err := httputil.ParseTrustedProxies(entries)
	require.NoError(t, err)
	return func(o *Options) { o.TrustedProxies = tp }
}

func withStore(wrap func(users.Store) users.Store) envOption {
	return func(o *Options) { o.Store = wrap(o.Store) }
}

func newSQLiteStore(t *testing.T) *users.SQLStore {
	t.Helper()
	ctx := context.Background()

	db, err := storage.OpenDatabase(ctx, storage.DatabaseConfig{
		Driver: storage.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := users.NewSQLStore(ctx, db, storage.DriverSQLite)
	require.NoError(t, err)
	return store
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()
	sqlStore := newSQLiteStore(t)

	hash, err := auth.HashPasswordCost(testPassword, bcrypt.MinCost)
	require.NoError(t, err)

	alice := &auth.Principal{Username: "alice", Email: "alice@example.com", PasswordHash: hash}
	root := &auth.Principal{Username: "root", Email: "root@example.com", PasswordHash: hash}
	require.NoError(t, sqlStore.Create(ctx, alice))
	require.NoError(t, sqlStore.Create(ctx, root))
	root, err = sqlStore.SetAdmin(ctx, root.ID, true)
	require.NoError(t, err)

	options := Options{
		Store:          sqlStore,
		Logger:         observability.NewLogger(observability.ErrorLevel, io.Discard),
		AllowedOrigins: []string{"https://questlog.example"},
	}
	for _, opt := range opts {
		opt(&options)
	}

	codec, err := auth.NewCodec([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	authn := auth.NewAuthenticator(options.Store, codec, auth.NewMemoryRegistry(codec), options.Logger, nil)
	options.Authenticator = authn

	auditBuf := &bytes.Buffer{}
	options.Audit = auth.NewAuditLogger(observability.NewLogger(observability.InfoLevel, auditBuf))

	return &testEnv{
		server:   NewServer(options),
		store:    options.Store,
		authn:    authn,
		auditBuf: auditBuf,
		alice:    alice,
		root:     root,
	}
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	w := e.do("POST", "/auth/login", "", map[string]string{"username": username, "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result auth.LoginResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

// failingStore fails every lookup with err
type failingStore struct {
	users.Store
	err error
}

func (s failingStore) FindByUsername(context.Context, string) (*auth.Principal, error) {
	return nil, s.err
}

func (s failingStore) UsernameExists(context.Context, string) (bool, error) {
	return false, s.err
}

// staleExistsStore answers every availability check with "free", so
// duplicates are only caught by the insert
type staleExistsStore struct {
	users.Store
}

func (staleExistsStore) UsernameExists(context.Context, string) (bool, error) { return false, nil }
func (staleExistsStore) EmailExists(context.Context, string) (bool, error)    { return false, nil }

func (e *testEnv) auditEntries(t *testing.T, action string) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(e.auditBuf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		if entry["action"] == action {
			entries = append(entries, entry)
		}
	}
	return entries
}
