package auth

import "errors"

var (
	// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrMalformedToken covers bad signatures, unparseable tokens, wrong algorithms
	// and tokens the JWT library itself considers expired
	ErrMalformedToken = errors.New("malformed token")

	// ErrExpiredToken marks a token whose expiry has passed
	ErrExpiredToken = errors.New("token expired")

	// ErrRevokedToken marks a token present in the revocation registry
	ErrRevokedToken = errors.New("token revoked")

	// ErrSubjectMismatch marks a token issued to a different principal
	ErrSubjectMismatch = errors.New("token subject mismatch")

	// ErrUnauthenticated is the single outward-facing failure of token resolution
	ErrUnauthenticated = errors.New("authentication required")

	// ErrPrincipalNotFound is returned by a CredentialStore for unknown usernames
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrWeakSecret is returned when a configured signing secret is too short
	ErrWeakSecret = errors.New("signing secret must be at least 32 bytes")

	// ErrInvalidLifetime is returned for a zero token lifetime or one that is
	// not a whole number of seconds, which JWT timestamps cannot carry
	ErrInvalidLifetime = errors.New("token lifetime must be a non-zero whole number of seconds")
)
