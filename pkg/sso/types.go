package sso

import (
	"context"
	"errors"
	"net/http"
)

// ProviderName identifies a configured sign-on provider in URLs
type ProviderName string

const (
	ProviderGoogle ProviderName = "google"
)

// ProviderConfig holds OpenID Connect client settings for one provider
type ProviderConfig struct {
	Name         ProviderName `json:"name"`
	IssuerURL    string       `json:"issuer_url"`
	ClientID     string       `json:"client_id"`
	ClientSecret string       `json:"client_secret,omitempty"`
	RedirectURL  string       `json:"redirect_url"`
	Scopes       []string     `json:"scopes"`
}

// SSOUser is the identity asserted by a provider after a successful callback
type SSOUser struct {
	Provider      ProviderName      `json:"provider"`
	Subject       string            `json:"subject"`
	Email         string            `json:"email"`
	EmailVerified bool              `json:"email_verified"`
	Name          string            `json:"name,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// Provider drives the authorization code flow for one identity provider
type Provider interface {
	// GetName returns the name used in route paths
	GetName() ProviderName

	// InitiateLogin redirects the browser to the provider's consent page
	InitiateLogin(w http.ResponseWriter, r *http.Request, state string) error

	// HandleCallback exchanges the authorization code on r for the user's identity
	HandleCallback(ctx context.Context, r *http.Request) (*SSOUser, error)
}

var (
	// ErrMissingCode is returned when the callback carries no authorization code
	ErrMissingCode = errors.New("missing authorization code")

	// ErrMissingEmail is returned when the provider asserts no email address
	ErrMissingEmail = errors.New("missing email in identity token")

	// ErrEmailNotVerified is returned when the provider has not verified the
	// asserted email address
	ErrEmailNotVerified = errors.New("email address not verified by provider")

	// ErrStateMismatch is returned when the callback state does not match the cookie
	ErrStateMismatch = errors.New("invalid state parameter")
)
