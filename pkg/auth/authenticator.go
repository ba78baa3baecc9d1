package auth

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/questlog/questlog/pkg/observability"
)

const tracerName = "github.com/questlog/questlog/pkg/auth"

// Authenticator decides whether a request is authenticated and as whom
type Authenticator struct {
	store    CredentialStore
	codec    *Codec
	registry RevocationRegistry
	logger   *observability.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

// NewAuthenticator creates an authenticator. metrics may be nil.
func NewAuthenticator(store CredentialStore, codec *Codec, registry RevocationRegistry, logger *observability.Logger, metrics *observability.Metrics) *Authenticator {
	return &Authenticator{
		store:    store,
		codec:    codec,
		registry: registry,
		logger:   logger.WithField("component", "authenticator"),
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
	}
}

// Login checks a username and password and issues a token.
// Unknown usernames and wrong passwords both return ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	ctx, span := a.tracer.Start(ctx, "auth.Login")
	defer span.End()

	principal, err := a.store.FindByUsername(ctx, username)
	if errors.Is(err, ErrPrincipalNotFound) {
		burnPasswordCheck(password)
		a.metrics.RecordLogin("invalid_credentials")
		a.logger.WithField("username", username).Info("Login rejected: unknown username")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		a.metrics.RecordLogin("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential lookup failed")
		return nil, fmt.Errorf("failed to look up principal: %w", err)
	}

	if !principal.PasswordMatches(password) {
		a.metrics.RecordLogin("invalid_credentials")
		a.logger.WithField("username", username).Info("Login rejected: password mismatch")
		return nil, ErrInvalidCredentials
	}

	result, err := a.issue(principal, SourcePassword)
	if err != nil {
		a.metrics.RecordLogin("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "token issue failed")
		return nil, err
	}

	a.metrics.RecordLogin("success")
	span.SetAttributes(attribute.Int64("questlog.user_id", principal.ID))
	return result, nil
}

// IssueFor issues a token for a principal authenticated by other means
func (a *Authenticator) IssueFor(ctx context.Context, principal *Principal) (*LoginResult, error) {
	_, span := a.tracer.Start(ctx, "auth.IssueFor")
	defer span.End()

	if principal == nil {
		return nil, errors.New("principal is required")
	}
	return a.issue(principal, SourceSSO)
}

func (a *Authenticator) issue(principal *Principal, source Source) (*LoginResult, error) {
	token, expiresAt, err := a.codec.issue(principal.Username, map[string]interface{}{
		"uid": principal.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	a.metrics.RecordTokenIssued(string(source))
	a.logger.WithFields(map[string]interface{}{
		"username":    principal.Username,
		"source":      string(source),
		"fingerprint": Fingerprint(token),
	}).Debug("Token issued")

	return &LoginResult{
		Token:     token,
		Username:  principal.Username,
		UserID:    principal.ID,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate reports whether token is currently valid for principal: the
// signature verifies, it has not expired, it was not revoked and its subject
// is the principal's username. It never returns an error; any failure,
// including a registry failure, reads as invalid.
func (a *Authenticator) Validate(ctx context.Context, token string, principal *Principal) bool {
	claims, err := a.codec.Decode(token)
	if err == nil {
		err = a.verify(ctx, token, claims, principal)
	}
	a.metrics.RecordValidation(validationResult(err))
	if err != nil {
		a.logger.WithError(err).WithField("fingerprint", Fingerprint(token)).Debug("Token rejected")
		return false
	}
	return true
}

// Resolve turns a bearer token into an Identity. Every failure is reported
// as ErrUnauthenticated; the specific reason is only logged.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*Identity, error) {
	ctx, span := a.tracer.Start(ctx, "auth.Resolve")
	defer span.End()

	identity, err := a.resolve(ctx, token)
	a.metrics.RecordValidation(validationResult(err))
	if err != nil {
		observability.FromContext(ctx).
			WithError(err).
			WithField("fingerprint", Fingerprint(token)).
			Debug("Bearer token rejected")
		span.SetAttributes(attribute.String("questlog.auth.result", validationResult(err)))
		return nil, ErrUnauthenticated
	}
	return identity, nil
}

func (a *Authenticator) resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := a.codec.Decode(token)
	if err != nil {
		return nil, err
	}

	principal, err := a.store.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", ErrSubjectMismatch)
		}
		return nil, fmt.Errorf("failed to look up principal: %w", err)
	}

	if err := a.verify(ctx, token, claims, principal); err != nil {
		return nil, err
	}

	return &Identity{
		Principal: principal,
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
		Source:    SourceBearer,
	}, nil
}

func (a *Authenticator) verify(ctx context.Context, token string, claims *Claims, principal *Principal) error {
	if !principal.UsernameEquals(claims.Subject) {
		return ErrSubjectMismatch
	}
	if !a.codec.Now().Before(claims.ExpiresAt) {
		return ErrExpiredToken
	}
	revoked, err := a.registry.IsRevoked(ctx, token)
	if err != nil {
		return fmt.Errorf("revocation check failed: %w", err)
	}
	if revoked {
		return ErrRevokedToken
	}
	return nil
}

// Logout revokes token. It succeeds for any input, including tokens that
// were never issued or are already invalid.
func (a *Authenticator) Logout(ctx context.Context, token string) {
	a.metrics.RecordLogout()
	if token == "" {
		return
	}

	logger := observability.FromContext(ctx).WithField("fingerprint", Fingerprint(token))
	if err := a.registry.Revoke(ctx, token); err != nil {
		logger.WithError(err).Error("Failed to revoke token on logout")
		return
	}
	logger.Debug("Token revoked")
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrExpiredToken):
		return "expired"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrRevokedToken):
		return "revoked"
	case errors.Is(err, ErrSubjectMismatch):
		return "subject_mismatch"
	default:
		return "error"
	}
}
