package api

import (
	"errors"
	"net/http"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/httputil"
	"github.com/questlog/questlog/pkg/users"
)

// getCurrentUser handles GET /api/user/me
func (s *Server) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	httputil.WriteSuccess(w, newUserResponse(identity.Principal))
}

// getUser handles GET /api/user/{userId} and GET /api/admin/users/{userId}
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	principal, err := s.store.FindByID(r.Context(), userID)
	if errors.Is(err, users.ErrNotFound) {
		httputil.WriteNotFoundError(w, "user not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to fetch user", err)
		return
	}

	httputil.WriteSuccess(w, newUserResponse(principal))
}

// listUsers handles GET /api/admin/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	principals, err := s.store.List(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to list users", err)
		return
	}

	resp := make([]UserResponse, 0, len(principals))
	for _, p := range principals {
		resp = append(resp, newUserResponse(p))
	}
	httputil.WriteSuccess(w, resp)
}

// grantAdmin handles PUT /api/admin/users/{userId}/grant-admin
func (s *Server) grantAdmin(w http.ResponseWriter, r *http.Request) {
	s.setAdmin(w, r, true)
}

// revokeAdmin handles PUT /api/admin/users/{userId}/revoke-admin
func (s *Server) revokeAdmin(w http.ResponseWriter, r *http.Request) {
	s.setAdmin(w, r, false)
}

func (s *Server) setAdmin(w http.ResponseWriter, r *http.Request, admin bool) {
	action, message := auth.ActionGrantAdmin, "Admin privileges granted successfully"
	if !admin {
		action, message = auth.ActionRevokeAdmin, "Admin privileges revoked successfully"
	}

	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	principal, err := s.store.SetAdmin(r.Context(), userID, admin)
	if errors.Is(err, users.ErrNotFound) {
		s.auditTarget(r, action, userID, auth.StatusFailure, err)
		httputil.WriteNotFoundError(w, "user not found")
		return
	}
	if err != nil {
		s.auditTarget(r, action, userID, auth.StatusFailure, err)
		s.internalError(w, r, "Failed to update user", err)
		return
	}

	s.auditTarget(r, action, userID, auth.StatusSuccess, nil)
	httputil.WriteSuccess(w, AdminChangeResponse{
		Message: message,
		User:    newUserResponse(principal),
	})
}

func (s *Server) auditTarget(r *http.Request, action string, targetID int64, status string, err error) {
	entry := &auth.AuditLog{
		Action:       action,
		TargetUserID: targetID,
		IPAddress:    httputil.ClientIP(r),
		UserAgent:    r.UserAgent(),
		Status:       status,
	}
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		entry.Username = identity.Principal.Username
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	s.audit.LogAction(entry)
}
