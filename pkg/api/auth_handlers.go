package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/httputil"
	"github.com/questlog/questlog/pkg/middleware"
	"github.com/questlog/questlog/pkg/observability"
	"github.com/questlog/questlog/pkg/users"
)

const (
	msgInvalidCredentials = "invalid username or password"
	msgLoggedOut          = "Successfully logged out!"
	minPasswordLength     = 6
)

// login handles POST /auth/login. Credentials arrive as form fields or a
// JSON object.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	fields, err := httputil.ParseFields(r, "username", "password")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	username := fields["username"]

	result, err := s.authn.Login(r.Context(), username, fields["password"])
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.audit.LogFromRequest(r, auth.ActionLogin, username, auth.StatusFailure, err)
		httputil.WriteUnauthorized(w, msgInvalidCredentials)
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Login failed")
		s.audit.LogFromRequest(r, auth.ActionLogin, username, auth.StatusFailure, err)
		httputil.WriteInternalError(w, errors.New("login failed"))
		return
	}

	s.audit.LogFromRequest(r, auth.ActionLogin, result.Username, auth.StatusSuccess, nil)
	httputil.WriteSuccess(w, result)
}

// signup handles POST /auth/signup
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	fields, err := httputil.ParseFields(r, "username", "email", "password")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	req := SignupRequest{
		Username: strings.TrimSpace(fields["username"]),
		Email:    auth.NormalizeEmail(fields["email"]),
		Password: fields["password"],
	}

	if !httputil.ValidateAll(w,
		httputil.RequireNonEmpty(req.Username, "username"),
		requireEmail(req.Email),
		httputil.RequireMinLength(req.Password, "password", minPasswordLength),
	) {
		return
	}

	ctx := r.Context()
	if taken, err := s.store.UsernameExists(ctx, req.Username); err != nil {
		s.internalError(w, r, "Failed to check username", err)
		return
	} else if taken {
		httputil.WriteConflict(w, "username already taken")
		return
	}
	if taken, err := s.store.EmailExists(ctx, req.Email); err != nil {
		s.internalError(w, r, "Failed to check email", err)
		return
	} else if taken {
		httputil.WriteConflict(w, "email already in use")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.internalError(w, r, "Failed to hash password", err)
		return
	}

	principal := &auth.Principal{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.store.Create(ctx, principal); err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			s.audit.LogFromRequest(r, auth.ActionSignup, req.Username, auth.StatusFailure, err)
			httputil.WriteConflict(w, "username or email already in use")
			return
		}
		s.audit.LogFromRequest(r, auth.ActionSignup, req.Username, auth.StatusFailure, err)
		s.internalError(w, r, "Failed to create user", err)
		return
	}

	s.audit.LogFromRequest(r, auth.ActionSignup, principal.Username, auth.StatusSuccess, nil)
	httputil.WriteCreated(w, SignupResponse{
		ID:       principal.ID,
		Username: principal.Username,
		Email:    principal.Email,
		Admin:    principal.Admin,
		Message:  "Registration successful! Please login.",
	})
}

// logout handles POST /auth/logout. It always succeeds; a presented bearer
// token is revoked whether or not it is still valid. The audit entry names
// the user when the token still resolved and always carries its fingerprint.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	entry := auth.NewRequestAuditLog(r, auth.ActionLogout, "", auth.StatusSuccess, nil)
	if token, ok := middleware.BearerToken(r); ok {
		s.authn.Logout(r.Context(), token)
		entry.TokenFingerprint = auth.Fingerprint(token)
	}
	s.audit.LogAction(entry)
	httputil.WriteMessage(w, http.StatusOK, msgLoggedOut)
}

func requireEmail(email string) httputil.Validator {
	return func() (bool, string) {
		if !strings.Contains(email, "@") {
			return false, "a valid email is required"
		}
		return true, ""
	}
}

// internalError logs err and answers 500 without exposing the cause
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	observability.FromContext(r.Context()).WithError(err).Error(msg)
	httputil.WriteInternalError(w, errors.New(strings.ToLower(msg)))
}
