package api

import (
	"time"

	"github.com/questlog/questlog/pkg/auth"
)

// SignupRequest is the body accepted by POST /auth/signup
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponse is returned after an account is created
type SignupResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Admin    bool   `json:"isAdmin"`
	Message  string `json:"message"`
}

// UserResponse is the public view of an account
type UserResponse struct {
	ID            int64            `json:"id"`
	Username      string           `json:"username"`
	Email         string           `json:"email"`
	Admin         bool             `json:"isAdmin"`
	OAuthUser     bool             `json:"oauthUser"`
	OAuthProvider string           `json:"oauthProvider,omitempty"`
	Authorities   []auth.Authority `json:"authorities"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// AdminChangeResponse is returned by the grant and revoke endpoints
type AdminChangeResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

func newUserResponse(p *auth.Principal) UserResponse {
	return UserResponse{
		ID:            p.ID,
		Username:      p.Username,
		Email:         p.Email,
		Admin:         p.Admin,
		OAuthUser:     p.OAuthUser,
		OAuthProvider: p.OAuthProvider,
		Authorities:   p.Authorities(),
		CreatedAt:     p.CreatedAt,
	}
}
