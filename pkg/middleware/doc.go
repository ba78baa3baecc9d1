// Package middleware provides the request gate, authorization guards and
// credential-endpoint rate limiting.
//
// The gate resolves an "Authorization: Bearer <token>" header into an
// identity and binds it to the request context. It never rejects a request:
// anonymous callers continue down the chain and the guards decide.
//
//	gate := middleware.NewGate(authenticator)
//	router.Use(gate.Handler)
//	router.Handle("/api/user/me", middleware.RequireAuthenticated(me))
//	router.Handle("/api/admin/users", middleware.RequireAdmin(list))
//
// RateLimit throttles per client address with either an in-process token
// bucket or a Redis counter shared across instances.
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, nil, "")
//	router.Handle("/auth/login", middleware.RateLimit(limiter)(login))
//
// # Related Packages
//
//   - pkg/auth: token validation and identities
package middleware
