package auth

import (
	"context"
	"strings"
	"time"
)

// Principal is an account that can authenticate
type Principal struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Admin         bool      `json:"admin"`
	OAuthUser     bool      `json:"oauth_user"`
	OAuthProvider string    `json:"oauth_provider,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// UsernameEquals reports whether the principal is identified by username.
// Usernames are compared exactly; token subjects carry the stored spelling.
func (p *Principal) UsernameEquals(username string) bool {
	return p != nil && p.Username == username
}

// PasswordMatches checks a raw password against the stored bcrypt hash
func (p *Principal) PasswordMatches(raw string) bool {
	if p == nil || p.PasswordHash == "" {
		return false
	}
	return CheckPassword(p.PasswordHash, raw)
}

// Authorities returns the roles granted to the principal
func (p *Principal) Authorities() []Authority {
	if p != nil && p.Admin {
		return []Authority{AuthorityAdmin}
	}
	return []Authority{AuthorityUser}
}

// HasAuthority reports whether the principal holds the given authority
func (p *Principal) HasAuthority(a Authority) bool {
	for _, held := range p.Authorities() {
		if held == a {
			return true
		}
	}
	return false
}

// Authority is a role name granted to a principal
type Authority string

const (
	AuthorityAdmin Authority = "ADMIN"
	AuthorityUser  Authority = "ROLE_USER"
)

// Source records how an identity was established
type Source string

const (
	SourcePassword Source = "password"
	SourceBearer   Source = "bearer"
	SourceSSO      Source = "sso"
)

// Identity is the authenticated caller bound to a request
type Identity struct {
	Principal *Principal
	Token     string
	ExpiresAt time.Time
	Source    Source
}

// IsAdmin reports whether the identity holds the admin authority
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Principal.HasAuthority(AuthorityAdmin)
}

// LoginResult is returned by a successful login or SSO token issue
type LoginResult struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	UserID    int64     `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CredentialStore looks up principals by username.
// Implementations return ErrPrincipalNotFound when no such principal exists.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*Principal, error)
}

// NormalizeEmail lowercases and trims an email address for lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
