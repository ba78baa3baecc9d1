package sso

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// CallbackPath is the route the provider redirects back to
const CallbackPath = "/login/oauth2/code/"

// GoogleConfig returns the preset configuration for Google sign-on. The
// redirect URL is derived from the externally visible base URL of the API.
func GoogleConfig(clientID, clientSecret, issuerURL, redirectBaseURL string) *ProviderConfig {
	if issuerURL == "" {
		issuerURL = "https://accounts.google.com"
	}
	return &ProviderConfig{
		Name:         ProviderGoogle,
		IssuerURL:    issuerURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  strings.TrimRight(redirectBaseURL, "/") + CallbackPath + string(ProviderGoogle),
		Scopes:       []string{"openid", "email", "profile"},
	}
}

// Validate checks the configuration is usable for an OIDC client
func (c *ProviderConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required")
	}
	if c.IssuerURL == "" {
		return fmt.Errorf("issuer_url is required")
	}
	if u, err := url.Parse(c.RedirectURL); err != nil || !u.IsAbs() {
		return fmt.Errorf("redirect_url must be an absolute URL")
	}

	for _, scope := range c.Scopes {
		if scope == "openid" {
			return nil
		}
	}
	return fmt.Errorf("'openid' scope is required for OIDC")
}

// NewProvider validates cfg and discovers the provider's endpoints
func NewProvider(ctx context.Context, cfg *ProviderConfig) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s provider config: %w", cfg.Name, err)
	}
	return NewOIDCProvider(ctx, cfg)
}
