// Package config loads QuestLog configuration.
//
// Values come from built-in defaults, then an optional YAML file named by
// QUESTLOG_CONFIG_FILE, then environment variables. Later sources win.
//
// Server settings:
//
//	QUESTLOG_HOST="0.0.0.0"
//	QUESTLOG_PORT="8080"
//	QUESTLOG_HEALTH_PORT="9090"
//
// Database and Redis:
//
//	QUESTLOG_DB_DRIVER="postgres"  # postgres, sqlite3
//	QUESTLOG_DB_URL="postgres://localhost/questlog"
//	QUESTLOG_REDIS_URL="redis://localhost:6379/0"  # empty keeps revocations in process
//
// Tokens:
//
//	QUESTLOG_JWT_SECRET="..."         # at least 32 bytes; empty generates a key per process
//	QUESTLOG_TOKEN_LIFETIME="24h"
//	QUESTLOG_SWEEP_INTERVAL="60s"
//
// Google sign-on:
//
//	QUESTLOG_GOOGLE_CLIENT_ID="..."
//	QUESTLOG_GOOGLE_CLIENT_SECRET="..."
//	QUESTLOG_FRONTEND_URL="https://questlog.example"
//
// Observability:
//
//	QUESTLOG_LOG_LEVEL="info"  # debug, info, warn, error
//	QUESTLOG_OTEL_ENABLED="true"
//	QUESTLOG_OTEL_ENDPOINT="otel-collector:4317"
//
// The same keys in YAML form:
//
//	server:
//	  port: "8080"
//	auth:
//	  token_lifetime: 24h
//	sso:
//	  google_client_id: ...
package config
