package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/storage"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(255) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		oauth_user BOOLEAN NOT NULL DEFAULT FALSE,
		oauth_provider VARCHAR(50) NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email));
`

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		oauth_user BOOLEAN NOT NULL DEFAULT FALSE,
		oauth_provider TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email));
`

const userColumns = `id, username, email, password_hash, is_admin, oauth_user, oauth_provider, created_at`

// SQLStore implements Store on PostgreSQL or SQLite
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// NewSQLStore creates a store and ensures the users table exists
func NewSQLStore(ctx context.Context, db *sql.DB, driver string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	schema := postgresSchema
	switch driver {
	case storage.DriverPostgres, "":
		driver = storage.DriverPostgres
	case storage.DriverSQLite:
		schema = sqliteSchema
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure users table: %w", err)
	}

	return &SQLStore{
		db:     db,
		driver: driver,
		now:    time.Now,
	}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrincipal(row rowScanner) (*auth.Principal, error) {
	p := &auth.Principal{}
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.Email,
		&p.PasswordHash,
		&p.Admin,
		&p.OAuthUser,
		&p.OAuthProvider,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLStore) findOne(ctx context.Context, what, query string, arg interface{}) (*auth.Principal, error) {
	p, err := scanPrincipal(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", what, err)
	}
	return p, nil
}

// FindByUsername implements auth.CredentialStore
func (s *SQLStore) FindByUsername(ctx context.Context, username string) (*auth.Principal, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return s.findOne(ctx, "username", query, username)
}

// FindByEmail looks up a user by case-insensitive email
func (s *SQLStore) FindByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = $1`
	return s.findOne(ctx, "email", query, auth.NormalizeEmail(email))
}

// FindByID looks up a user by ID
func (s *SQLStore) FindByID(ctx context.Context, id int64) (*auth.Principal, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.findOne(ctx, "id", query, id)
}

// UsernameExists reports whether a username is taken
func (s *SQLStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// EmailExists reports whether an email is taken, ignoring case
func (s *SQLStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = $1)`, auth.NormalizeEmail(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// Create inserts a new user
func (s *SQLStore) Create(ctx context.Context, p *auth.Principal) error {
	query := `
		INSERT INTO users (username, email, password_hash, is_admin, oauth_user, oauth_provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	createdAt := s.now().UTC().Truncate(time.Microsecond)
	err := s.db.QueryRowContext(ctx, query,
		p.Username,
		p.Email,
		p.PasswordHash,
		p.Admin,
		p.OAuthUser,
		p.OAuthProvider,
		createdAt,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	p.CreatedAt = createdAt
	return nil
}

// List returns every user ordered by ID
func (s *SQLStore) List(ctx context.Context) ([]*auth.Principal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var principals []*auth.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		principals = append(principals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return principals, nil
}

// SetAdmin updates a user's admin flag
func (s *SQLStore) SetAdmin(ctx context.Context, id int64, admin bool) (*auth.Principal, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET is_admin = $1 WHERE id = $2`, admin, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
