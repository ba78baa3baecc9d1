//go:build integration

package users

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/storage"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker/Podman not available, skipping integration tests")
	}
	defer provider.Close()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("questlog_test"),
		postgres.WithUsername("questlog"),
		postgres.WithPassword("questlog_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := storage.OpenDatabase(ctx, storage.DatabaseConfig{
		Driver:   storage.DriverPostgres,
		URL:      connStr,
		MaxConns: 5,
		MinConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestPostgresStore_Integration(t *testing.T) {
	ctx := context.Background()
	db := setupPostgres(t)

	store, err := NewSQLStore(ctx, db, storage.DriverPostgres)
	require.NoError(t, err)

	alice := &auth.Principal{Username: "alice", Email: "Alice@example.com", PasswordHash: "hash"}
	require.NoError(t, store.Create(ctx, alice))

	err = store.Create(ctx, &auth.Principal{Username: "alice", Email: "x@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = store.Create(ctx, &auth.Principal{Username: "alice2", Email: "ALICE@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := store.FindByEmail(ctx, "alice@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	updated, err := store.SetAdmin(ctx, alice.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Admin)

	_, err = store.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
