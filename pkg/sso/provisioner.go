package sso

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/observability"
	"github.com/questlog/questlog/pkg/users"
)

const (
	// randomPasswordBytes is the entropy of the password given to SSO accounts
	randomPasswordBytes = 24

	// createAttempts bounds retries when a chosen username is taken between
	// the availability check and the insert
	createAttempts = 2
)

// UserProvisioner handles just-in-time provisioning of SSO users
type UserProvisioner struct {
	store  users.Store
	logger *observability.Logger
	now    func() time.Time
}

// NewUserProvisioner creates a new user provisioner
func NewUserProvisioner(store users.Store, logger *observability.Logger) *UserProvisioner {
	return &UserProvisioner{
		store:  store,
		logger: logger.WithField("component", "sso_provisioner"),
		now:    time.Now,
	}
}

// ProvisionUser returns the local account for ssoUser, matched by email.
// An account is created on first sign-on. Addresses the provider has not
// verified are refused, so an identity cannot claim someone else's account.
func (p *UserProvisioner) ProvisionUser(ctx context.Context, ssoUser *SSOUser) (*auth.Principal, error) {
	email := auth.NormalizeEmail(ssoUser.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	if !ssoUser.EmailVerified {
		p.logger.WithFields(map[string]interface{}{
			"provider": string(ssoUser.Provider),
			"subject":  ssoUser.Subject,
		}).Warn("Refusing SSO sign-on with unverified email")
		return nil, ErrEmailNotVerified
	}

	principal, err := p.store.FindByEmail(ctx, email)
	if err == nil {
		return principal, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		principal, err = p.createUser(ctx, email, ssoUser.Provider, attempt)
		if !errors.Is(err, users.ErrDuplicate) {
			return principal, err
		}

		// A concurrent callback for the same email won the insert
		existing, findErr := p.store.FindByEmail(ctx, email)
		if findErr == nil {
			return existing, nil
		}
		if !errors.Is(findErr, users.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user by email: %w", findErr)
		}
	}
	return nil, err
}

func (p *UserProvisioner) createUser(ctx context.Context, email string, provider ProviderName, attempt int) (*auth.Principal, error) {
	username, err := p.chooseUsername(ctx, email, attempt)
	if err != nil {
		return nil, err
	}

	password, err := auth.RandomPassword(randomPasswordBytes)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	principal := &auth.Principal{
		Username:      username,
		Email:         email,
		PasswordHash:  hash,
		OAuthUser:     true,
		OAuthProvider: string(provider),
	}
	if err := p.store.Create(ctx, principal); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"username": principal.Username,
		"user_id":  principal.ID,
		"provider": string(provider),
	}).Info("Provisioned SSO user")
	return principal, nil
}

// chooseUsername takes the email's local part, adding a numeric suffix
// when that name is already taken. Each attempt yields a different suffix.
func (p *UserProvisioner) chooseUsername(ctx context.Context, email string, attempt int) (string, error) {
	username := email
	if at := strings.Index(email, "@"); at > 0 {
		username = email[:at]
	}

	taken, err := p.store.UsernameExists(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to check username: %w", err)
	}
	if !taken {
		return username, nil
	}
	return fmt.Sprintf("%s-%d", username, (p.now().UnixMilli()+int64(attempt))%10000), nil
}
