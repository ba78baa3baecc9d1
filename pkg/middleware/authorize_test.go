package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/questlog/questlog/pkg/auth"
)

func withIdentity(r *http.Request, p *auth.Principal) *http.Request {
	if p == nil {
		return r
	}
	return r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{Principal: p, Source: auth.SourceBearer}))
}

var (
	regularUser = &auth.Principal{ID: 7, Username: "alice"}
	adminUser   = &auth.Principal{ID: 1, Username: "root", Admin: true}
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthenticated(t *testing.T) {
	tests := []struct {
		name      string
		principal *auth.Principal
		expected  int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"user", regularUser, http.StatusOK},
		{"admin", adminUser, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withIdentity(httptest.NewRequest("GET", "/api/user/me", nil), tt.principal)
			w := httptest.NewRecorder()

			RequireAuthenticated(okHandler()).ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name      string
		principal *auth.Principal
		expected  int
		body      string
	}{
		{"anonymous", nil, http.StatusUnauthorized, `{"error":"authentication required"}` + "\n"},
		{"user", regularUser, http.StatusForbidden, `{"error":"admin privileges required"}` + "\n"},
		{"admin", adminUser, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withIdentity(httptest.NewRequest("GET", "/api/admin/users", nil), tt.principal)
			w := httptest.NewRecorder()

			RequireAdmin(okHandler()).ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, w.Code)
			}
			if w.Body.String() != tt.body {
				t.Errorf("unexpected body: %q", w.Body.String())
			}
		})
	}
}

func TestRequireSelfOrAdmin(t *testing.T) {
	router := mux.NewRouter()
	router.Handle("/api/users/{user}", RequireSelfOrAdmin("user")(okHandler()))

	tests := []struct {
		name      string
		path      string
		principal *auth.Principal
		expected  int
	}{
		{"anonymous", "/api/users/alice", nil, http.StatusUnauthorized},
		{"self by username", "/api/users/alice", regularUser, http.StatusOK},
		{"self by id", "/api/users/7", regularUser, http.StatusOK},
		{"other user", "/api/users/bob", regularUser, http.StatusForbidden},
		{"other id", "/api/users/8", regularUser, http.StatusForbidden},
		{"username is case-sensitive", "/api/users/Alice", regularUser, http.StatusForbidden},
		{"admin on anyone", "/api/users/bob", adminUser, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withIdentity(httptest.NewRequest("GET", tt.path, nil), tt.principal)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}
