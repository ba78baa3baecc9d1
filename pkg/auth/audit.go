package auth

import (
	"net/http"
	"time"

	"github.com/questlog/questlog/pkg/httputil"
	"github.com/questlog/questlog/pkg/observability"
)

// AuditLog is a security-relevant event
type AuditLog struct {
	Action       string
	Username     string
	TargetUserID int64
	IPAddress    string
	UserAgent    string
	Status       string
	ErrorMessage string
	// TokenFingerprint identifies the token acted on without logging it
	TokenFingerprint string
	CreatedAt        time.Time
}

// AuditLogger writes security audit events to the structured log
type AuditLogger struct {
	logger *observability.Logger
	now    func() time.Time
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *observability.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger.WithField("audit", true),
		now:    time.Now,
	}
}

// LogAction records an audit event. Events without an action or status are dropped.
func (al *AuditLogger) LogAction(log *AuditLog) {
	if log.Action == "" || log.Status == "" {
		al.logger.Warn("Dropping audit event without action or status")
		return
	}
	log.CreatedAt = al.now()

	fields := map[string]interface{}{
		"action":     log.Action,
		"status":     log.Status,
		"ip_address": log.IPAddress,
		"created_at": log.CreatedAt,
	}
	if log.Username != "" {
		fields["username"] = log.Username
	}
	if log.TargetUserID != 0 {
		fields["target_user_id"] = log.TargetUserID
	}
	if log.UserAgent != "" {
		fields["user_agent"] = log.UserAgent
	}
	if log.ErrorMessage != "" {
		fields["error_message"] = log.ErrorMessage
	}
	if log.TokenFingerprint != "" {
		fields["token_fingerprint"] = log.TokenFingerprint
	}

	entry := al.logger.WithFields(fields)
	if log.Status == StatusSuccess {
		entry.Info("audit")
		return
	}
	entry.Warn("audit")
}

// LogFromRequest records an audit event for an HTTP request. The username is
// taken from the bound identity when the caller does not supply one.
func (al *AuditLogger) LogFromRequest(r *http.Request, action, username, status string, err error) {
	al.LogAction(NewRequestAuditLog(r, action, username, status, err))
}

// NewRequestAuditLog builds the audit event LogFromRequest would record, for
// callers that add fields before logging it
func NewRequestAuditLog(r *http.Request, action, username, status string, err error) *AuditLog {
	log := &AuditLog{
		Action:    action,
		Username:  username,
		IPAddress: httputil.ClientIP(r),
		UserAgent: r.UserAgent(),
		Status:    status,
	}
	if err != nil {
		log.ErrorMessage = err.Error()
	}
	if log.Username == "" {
		if identity, ok := IdentityFromContext(r.Context()); ok {
			log.Username = identity.Principal.Username
		}
	}
	return log
}

// Audit actions
const (
	ActionLogin       = "auth.login"
	ActionLogout      = "auth.logout"
	ActionSignup      = "user.create"
	ActionSSOLogin    = "auth.sso_login"
	ActionGrantAdmin  = "permission.grant"
	ActionRevokeAdmin = "permission.revoke"
)

// Status constants
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)
