// Package users is the QuestLog user directory.
//
// SQLStore keeps accounts in a single users table on PostgreSQL (lib/pq) or,
// for local development, SQLite (go-sqlite3). The table is created on first
// use. CachedStore fronts any Store with a short-lived LRU so per-request
// token resolution stays off the database.
//
//	store, err := users.NewSQLStore(ctx, db, storage.DriverPostgres)
//	cached := users.NewCachedStore(store, 1024, 30*time.Second, metrics)
//	authn := auth.NewAuthenticator(cached, codec, registry, logger, metrics)
package users
