package sso

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/httputil"
	"github.com/questlog/questlog/pkg/observability"
)

const (
	stateCookieName = "oauth2_state"
	stateMaxAge     = 600 // 10 minutes
)

// TokenIssuer issues API tokens for principals that signed on elsewhere
type TokenIssuer interface {
	IssueFor(ctx context.Context, principal *auth.Principal) (*auth.LoginResult, error)
}

// Handlers handles SSO-related HTTP requests
type Handlers struct {
	providers   map[ProviderName]Provider
	provisioner *UserProvisioner
	issuer      TokenIssuer
	audit       *auth.AuditLogger
	frontendURL string
	logger      *observability.Logger
}

// NewHandlers creates SSO handlers. After sign-on the browser is sent back
// to frontendURL.
func NewHandlers(provisioner *UserProvisioner, issuer TokenIssuer, audit *auth.AuditLogger, frontendURL string, logger *observability.Logger, providers ...Provider) *Handlers {
	h := &Handlers{
		providers:   make(map[ProviderName]Provider, len(providers)),
		provisioner: provisioner,
		issuer:      issuer,
		audit:       audit,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger.WithField("component", "sso"),
	}
	for _, p := range providers {
		h.providers[p.GetName()] = p
	}
	return h
}

// RegisterRoutes registers SSO routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/oauth2/authorization/{provider}", h.initiateLogin).Methods("GET")
	router.HandleFunc(CallbackPath+"{provider}", h.handleCallback).Methods("GET")
}

func (h *Handlers) provider(r *http.Request) (Provider, bool) {
	p, ok := h.providers[ProviderName(mux.Vars(r)["provider"])]
	return p, ok
}

// initiateLogin handles GET /oauth2/authorization/{provider}
func (h *Handlers) initiateLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(r)
	if !ok {
		httputil.WriteNotFoundError(w, "provider not found")
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     CallbackPath,
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   stateMaxAge,
	})

	if err := provider.InitiateLogin(w, r, state); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to initiate SSO login")
		httputil.WriteInternalError(w, err)
	}
}

// handleCallback handles GET /login/oauth2/code/{provider}. Every outcome is
// a redirect to the frontend.
func (h *Handlers) handleCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(r)
	if !ok {
		httputil.WriteNotFoundError(w, "provider not found")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: stateCookieName, MaxAge: -1, Path: CallbackPath})

	result, err := h.completeLogin(r, provider)
	if err != nil {
		observability.FromContext(r.Context()).
			WithError(err).
			WithField("provider", string(provider.GetName())).
			Warn("SSO sign-on failed")
		h.audit.LogFromRequest(r, auth.ActionSSOLogin, "", auth.StatusFailure, err)
		http.Redirect(w, r, h.frontendURL+"/login?error=oauth_failed", http.StatusFound)
		return
	}

	h.audit.LogFromRequest(r, auth.ActionSSOLogin, result.Username, auth.StatusSuccess, nil)

	query := url.Values{}
	query.Set("token", result.Token)
	query.Set("userId", strconv.FormatInt(result.UserID, 10))
	query.Set("username", result.Username)
	http.Redirect(w, r, h.frontendURL+"/oauth-callback?"+query.Encode(), http.StatusFound)
}

func (h *Handlers) completeLogin(r *http.Request, provider Provider) (*auth.LoginResult, error) {
	if reason := r.URL.Query().Get("error"); reason != "" {
		return nil, fmt.Errorf("provider returned error: %s", reason)
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		return nil, ErrStateMismatch
	}

	ctx := r.Context()
	ssoUser, err := provider.HandleCallback(ctx, r)
	if err != nil {
		return nil, err
	}

	principal, err := h.provisioner.ProvisionUser(ctx, ssoUser)
	if err != nil {
		return nil, fmt.Errorf("failed to provision user: %w", err)
	}

	return h.issuer.IssueFor(ctx, principal)
}
