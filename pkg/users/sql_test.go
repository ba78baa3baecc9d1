package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/storage"
)

var principalColumns = []string{"id", "username", "email", "password_hash", "is_admin", "oauth_user", "oauth_provider", "created_at"}

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewSQLStore(context.Background(), db, storage.DriverPostgres)
	require.NoError(t, err)
	return store, mock
}

func TestNewSQLStore(t *testing.T) {
	t.Run("nil db", func(t *testing.T) {
		_, err := NewSQLStore(context.Background(), nil, storage.DriverPostgres)
		assert.Error(t, err)
	})

	t.Run("unsupported driver", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		_, err = NewSQLStore(context.Background(), db, "mysql")
		assert.ErrorContains(t, err, "unsupported database driver")
	})

	t.Run("schema failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))

		_, err = NewSQLStore(context.Background(), db, storage.DriverPostgres)
		assert.ErrorContains(t, err, "failed to ensure users table")
	})
}

func TestSQLStore_FindByUsername(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(principalColumns).
			AddRow(int64(1), "alice", "alice@example.com", "$2a$hash", true, false, "", created))

	p, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "alice@example.com", p.Email)
	assert.True(t, p.Admin)
	assert.Equal(t, created, p.CreatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err = store.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, auth.ErrPrincipalNotFound)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username = $1")).
		WithArgs("alice").
		WillReturnError(errors.New("connection reset"))

	_, err = store.FindByUsername(ctx, "alice")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FindByEmailNormalizes(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = $1")).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(principalColumns).
			AddRow(int64(1), "alice", "Alice@Example.com", "", false, true, "google", time.Now()))

	p, err := store.FindByEmail(context.Background(), "  Alice@Example.COM ")
	require.NoError(t, err)
	assert.True(t, p.OAuthUser)
	assert.Equal(t, "google", p.OAuthProvider)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		store, mock := newMockStore(t)
		now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
		store.now = func() time.Time { return now }

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("alice", "alice@example.com", "hash", false, false, "", now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

		p := &auth.Principal{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
		require.NoError(t, store.Create(ctx, p))
		assert.Equal(t, int64(7), p.ID)
		assert.Equal(t, now, p.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery("INSERT INTO users").
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err := store.Create(ctx, &auth.Principal{Username: "alice", Email: "alice@example.com"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("other failure", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery("INSERT INTO users").WillReturnError(errors.New("disk full"))

		err := store.Create(ctx, &auth.Principal{Username: "alice", Email: "alice@example.com"})
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrDuplicate))
	})
}

func TestSQLStore_Exists(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = $1)")).
		WithArgs("bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := store.UsernameExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.EmailExists(ctx, "BOB@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SetAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("updates and reloads", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_admin = $1 WHERE id = $2")).
			WithArgs(true, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(principalColumns).
				AddRow(int64(3), "carol", "carol@example.com", "", true, false, "", time.Now()))

		p, err := store.SetAdmin(ctx, 3, true)
		require.NoError(t, err)
		assert.True(t, p.Admin)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectExec("UPDATE users SET is_admin").
			WithArgs(false, int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := store.SetAdmin(ctx, 99, false)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSQLStore_List(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(principalColumns).
			AddRow(int64(1), "alice", "alice@example.com", "", false, false, "", time.Now()).
			AddRow(int64(2), "bob", "bob@example.com", "", true, false, "", time.Now()))

	principals, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, principals, 2)
	assert.Equal(t, "bob", principals[1].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}
