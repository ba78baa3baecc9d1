package middleware

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/httputil"
)

const (
	msgAuthenticationRequired = "authentication required"
	msgAdminRequired          = "admin privileges required"
	msgForbidden              = "access denied"
)

// RequireAuthenticated rejects requests without a bound identity
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFromContext(r.Context()); !ok {
			httputil.WriteUnauthorized(w, msgAuthenticationRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous callers with 401 and non-admins with 403
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, msgAuthenticationRequired)
			return
		}
		if !identity.IsAdmin() {
			httputil.WriteForbidden(w, msgAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSelfOrAdmin allows the request when the path variable named param
// matches the caller's user ID or username, or when the caller is an admin.
func RequireSelfOrAdmin(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, msgAuthenticationRequired)
				return
			}
			if identity.IsAdmin() || isSelf(identity.Principal, mux.Vars(r)[param]) {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteForbidden(w, msgForbidden)
		})
	}
}

func isSelf(p *auth.Principal, value string) bool {
	if p == nil || value == "" {
		return false
	}
	if p.UsernameEquals(value) {
		return true
	}
	return value == strconv.FormatInt(p.ID, 10)
}
