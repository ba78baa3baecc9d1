package sso

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCProvider implements OpenID Connect sign-on
type OIDCProvider struct {
	config       *ProviderConfig
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

// NewOIDCProvider creates a new OIDC provider
func NewOIDCProvider(ctx context.Context, config *ProviderConfig) (*OIDCProvider, error) {
	// Discover OIDC provider
	provider, err := oidc.NewProvider(ctx, config.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	return newOIDCProvider(config, provider.Endpoint(), provider.Verifier(&oidc.Config{ClientID: config.ClientID})), nil
}

func newOIDCProvider(config *ProviderConfig, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *OIDCProvider {
	return &OIDCProvider{
		config:   config,
		verifier: verifier,
		oauth2Config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  config.RedirectURL,
			Scopes:       config.Scopes,
		},
	}
}

// GetName returns the provider name
func (p *OIDCProvider) GetName() ProviderName {
	return p.config.Name
}

// InitiateLogin redirects to the OIDC authorization endpoint
func (p *OIDCProvider) InitiateLogin(w http.ResponseWriter, r *http.Request, state string) error {
	http.Redirect(w, r, p.AuthCodeURL(state), http.StatusFound)
	return nil
}

// AuthCodeURL returns the consent page URL for state
func (p *OIDCProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// HandleCallback exchanges the authorization code and verifies the ID token
func (p *OIDCProvider) HandleCallback(ctx context.Context, r *http.Request) (*SSOUser, error) {
	code := r.URL.Query().Get("code")
	if code == "" {
		return nil, ErrMissingCode
	}

	oauth2Token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("missing id_token in response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	return userFromClaims(p.config.Name, idToken.Subject, claims)
}

// userFromClaims maps standard OIDC claims onto an SSOUser
func userFromClaims(provider ProviderName, subject string, claims map[string]interface{}) (*SSOUser, error) {
	user := &SSOUser{
		Provider:   provider,
		Subject:    subject,
		Email:      getStringValue(claims, "email"),
		Name:       getStringValue(claims, "name"),
		Attributes: make(map[string]string),
	}
	if verified, ok := claims["email_verified"].(bool); ok {
		user.EmailVerified = verified
	}

	for k, v := range claims {
		if str, ok := v.(string); ok {
			user.Attributes[k] = str
		}
	}

	if user.Subject == "" {
		user.Subject = getStringValue(claims, "sub")
	}
	if user.Subject == "" {
		return nil, fmt.Errorf("missing subject in identity token")
	}
	if user.Email == "" {
		return nil, ErrMissingEmail
	}
	return user, nil
}

func getStringValue(claims map[string]interface{}, key string) string {
	if key == "" {
		return ""
	}
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
