// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, result)
//	httputil.WriteMessage(w, http.StatusOK, "Successfully logged out!")
//	httputil.WriteUnauthorized(w, "authentication required")
//	httputil.WriteConflict(w, "Username is already taken!")
//
// # Request Parsing
//
// Login and signup accept either form or JSON bodies:
//
//	fields, err := httputil.ParseFields(r, "username", "password")
//
// Path parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "userId")
//
// # Validation
//
//	httputil.ValidateAll(w,
//		httputil.RequireNonEmpty(req.Username, "username"),
//		httputil.RequireMinLength(req.Password, "password", 6),
//	)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.CORSMiddleware(origins),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: request gate and authorization guards
package httputil
