// Package storage opens the connections QuestLog persists through.
//
// OpenDatabase returns a pinged *sql.DB for the user directory. PostgreSQL
// (lib/pq) is the production driver; SQLite (go-sqlite3) serves local
// development and tests and is limited to one open connection.
//
// NewRedisClient returns a pinged go-redis client. Redis is optional and
// holds the shared token revocation set and credential rate limits when
// several instances run behind a load balancer.
//
//	db, err := storage.OpenDatabase(ctx, storage.DatabaseConfig{
//		Driver: storage.DriverPostgres,
//		URL:    "postgres://questlog@localhost/questlog?sslmode=disable",
//	})
//
//	client, err := storage.NewRedisClient(ctx, storage.RedisConfig{URL: "redis://localhost:6379/0"})
package storage
