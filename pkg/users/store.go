package users

import (
	"context"
	"errors"

	"github.com/questlog/questlog/pkg/auth"
)

var (
	// ErrNotFound is returned when no user matches a lookup
	ErrNotFound = auth.ErrPrincipalNotFound

	// ErrDuplicate is returned when a username or email is already taken
	ErrDuplicate = errors.New("user already exists")
)

// Store is the user directory backing authentication and account management
type Store interface {
	auth.CredentialStore

	FindByEmail(ctx context.Context, email string) (*auth.Principal, error)
	FindByID(ctx context.Context, id int64) (*auth.Principal, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	// Create inserts a user and sets its ID and CreatedAt
	Create(ctx context.Context, p *auth.Principal) error
	List(ctx context.Context) ([]*auth.Principal, error)
	// SetAdmin updates the admin flag and returns the updated user
	SetAdmin(ctx context.Context, id int64, admin bool) (*auth.Principal, error)
}
