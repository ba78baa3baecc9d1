package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/observability"
)

// BearerPrefix is the only accepted Authorization scheme
const BearerPrefix = "Bearer "

// Resolver turns a bearer token into an identity
type Resolver interface {
	Resolve(ctx context.Context, token string) (*auth.Identity, error)
}

// Gate binds the caller's identity to the request context when a valid
// bearer token is presented. It never rejects a request; guards further down
// the chain decide what an anonymous caller may do.
type Gate struct {
	resolver Resolver
}

// NewGate creates a request gate
func NewGate(resolver Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// Handler wraps an HTTP handler with token resolution
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Preflight requests carry no credentials
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if _, ok := auth.IdentityFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := BearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := g.resolver.Resolve(r.Context(), token)
		if err != nil {
			observability.FromContext(r.Context()).
				WithField("fingerprint", auth.Fingerprint(token)).
				Debug("proceeding without identity")
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-sensitively; an empty token counts as
// absent.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := header[len(BearerPrefix):]
	if token == "" {
		return "", false
	}
	return token, true
}
