package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/httputil"
	"github.com/questlog/questlog/pkg/middleware"
	"github.com/questlog/questlog/pkg/observability"
	"github.com/questlog/questlog/pkg/users"
)

// Options wires the server's collaborators. Metrics, CredentialLimiter and
// SSO are optional.
type Options struct {
	Store         users.Store
	Authenticator *auth.Authenticator
	Audit         *auth.AuditLogger
	Logger        *observability.Logger
	Metrics       *observability.Metrics

	// CredentialLimiter throttles login and signup per client address
	CredentialLimiter middleware.Limiter

	// SSO registers the sign-on routes when set
	SSO RouteRegistrar

	// TrustedProxies may set the client address through forwarding
	// headers. Nil means the socket address is always used.
	TrustedProxies *httputil.TrustedProxies

	AllowedOrigins []string
	MaxBodyBytes   int64
}

const defaultMaxBodyBytes = 1 << 20

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler

	store  users.Store
	authn  *auth.Authenticator
	audit  *auth.AuditLogger
	logger *observability.Logger

	credentialLimiter middleware.Limiter
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	s := &Server{
		router:            mux.NewRouter(),
		store:             opts.Store,
		authn:             opts.Authenticator,
		audit:             opts.Audit,
		logger:            opts.Logger.WithField("component", "api"),
		credentialLimiter: opts.CredentialLimiter,
	}

	if s.audit == nil {
		s.audit = auth.NewAuditLogger(opts.Logger)
	}

	s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	s.setupRoutes()
	if opts.SSO != nil {
		opts.SSO.RegisterRoutes(s.router)
	}
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "not found")
	})

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	// Outermost first. CORS answers preflight requests before the gate runs.
	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.ClientIPMiddleware(opts.TrustedProxies),
		httputil.LoggingMiddleware(opts.Logger),
		httputil.RecoveryMiddleware(opts.Logger),
		httputil.CORSMiddleware(opts.AllowedOrigins),
		httputil.MaxBytesMiddleware(maxBody),
		middleware.NewGate(opts.Authenticator).Handler,
	)(s.router)

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Credential routes
	s.router.Handle("/auth/login", s.throttled(s.login)).Methods("POST")
	s.router.Handle("/auth/signup", s.throttled(s.signup)).Methods("POST")
	s.router.HandleFunc("/auth/logout", s.logout).Methods("POST")

	// Account routes
	s.router.Handle("/api/user/me", middleware.RequireAuthenticated(http.HandlerFunc(s.getCurrentUser))).Methods("GET")
	s.router.Handle("/api/user/{userId}", middleware.RequireSelfOrAdmin("userId")(http.HandlerFunc(s.getUser))).Methods("GET")

	// Admin routes
	admin := s.router.PathPrefix("/api/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/users", s.listUsers).Methods("GET")
	admin.HandleFunc("/users/{userId}", s.getUser).Methods("GET")
	admin.HandleFunc("/users/{userId}/grant-admin", s.grantAdmin).Methods("PUT")
	admin.HandleFunc("/users/{userId}/revoke-admin", s.revokeAdmin).Methods("PUT")
}

func (s *Server) throttled(fn http.HandlerFunc) http.Handler {
	if s.credentialLimiter == nil {
		return fn
	}
	return middleware.RateLimit(s.credentialLimiter)(fn)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router so callers can add routes
func (s *Server) Router() *mux.Router {
	return s.router
}
