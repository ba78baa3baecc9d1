// Package api provides the HTTP API for QuestLog accounts and sessions.
//
// # Endpoints
//
// Credentials:
//
//	POST /auth/login     form or JSON {username, password} -> {token, username, userId, expiresAt}
//	POST /auth/signup    {username, email, password} -> 201
//	POST /auth/logout    revokes the presented bearer token, always 200
//
// Accounts (bearer token required):
//
//	GET /api/user/me
//	GET /api/user/{userId}    self or admin
//
// Administration (admin only):
//
//	GET /api/admin/users
//	GET /api/admin/users/{userId}
//	PUT /api/admin/users/{userId}/grant-admin
//	PUT /api/admin/users/{userId}/revoke-admin
//
// Sign-on routes are added by pkg/sso when configured. Probes and metrics
// are served by NewOpsHandler on a separate port.
//
// # Request pipeline
//
// Every request passes request ID, logging, panic recovery, CORS and body
// size middleware, then the request gate, which binds the caller's identity
// when a valid bearer token is presented. Anonymous requests continue; the
// route guards in pkg/middleware answer 401 or 403.
//
// # Usage
//
//	server := api.NewServer(api.Options{
//		Store:         store,
//		Authenticator: authn,
//		Logger:        logger,
//	})
//	http.ListenAndServe(":8080", server)
package api
