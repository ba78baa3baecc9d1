package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the minimum HS256 signing secret length in bytes
const MinSecretLength = 32

// Claims is the decoded content of an access token
type Claims struct {
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Extra     map[string]interface{}
}

var registeredClaims = map[string]bool{
	"sub": true, "jti": true, "iat": true, "exp": true, "nbf": true, "iss": true, "aud": true,
}

// Codec issues and decodes HS256 JWT access tokens
type Codec struct {
	key       []byte
	lifetime  time.Duration
	now       func() time.Time
	generated bool

	parser     *jwt.Parser
	peekParser *jwt.Parser
}

// CodecOption configures a Codec
type CodecOption func(*Codec)

// WithClock overrides the time source used for issuing and validating tokens
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a token codec. An empty secret makes the codec generate a
// random key held for the lifetime of the process, so tokens issued with it
// stop validating after a restart.
func NewCodec(secret []byte, lifetime time.Duration, opts ...CodecOption) (*Codec, error) {
	if lifetime == 0 || lifetime%time.Second != 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLifetime, lifetime)
	}

	c := &Codec{
		lifetime: lifetime,
		now:      time.Now,
	}

	switch {
	case len(secret) == 0:
		c.key = make([]byte, MinSecretLength)
		if _, err := rand.Read(c.key); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		c.generated = true
	case len(secret) < MinSecretLength:
		return nil, ErrWeakSecret
	default:
		c.key = append([]byte(nil), secret...)
	}

	for _, opt := range opts {
		opt(c)
	}

	clock := func() time.Time { return c.now() }
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(clock),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)
	c.peekParser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
		jwt.WithStrictDecoding(),
	)

	return c, nil
}

// GeneratedKey reports whether the signing key was generated at startup
func (c *Codec) GeneratedKey() bool {
	return c.generated
}

// Lifetime returns the configured token lifetime
func (c *Codec) Lifetime() time.Duration {
	return c.lifetime
}

// Now returns the codec's current time
func (c *Codec) Now() time.Time {
	return c.now()
}

// Issue signs a new token for subject. Registered claim names in extra are ignored.
func (c *Codec) Issue(subject string, extra map[string]interface{}) (string, error) {
	token, _, err := c.issue(subject, extra)
	return token, err
}

func (c *Codec) issue(subject string, extra map[string]interface{}) (string, time.Time, error) {
	issuedAt := c.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(c.lifetime)

	claims := jwt.MapClaims{}
	for k, v := range extra {
		if !registeredClaims[k] {
			claims[k] = v
		}
	}
	claims["sub"] = subject
	claims["jti"] = uuid.NewString()
	claims["iat"] = jwt.NewNumericDate(issuedAt)
	claims["exp"] = jwt.NewNumericDate(expiresAt)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Decode verifies a token and returns its claims.
// Every failure wraps ErrMalformedToken; expired tokens additionally wrap ErrExpiredToken.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	return c.decode(c.parser, tokenString)
}

// SubjectOf returns the verified subject of a token
func (c *Codec) SubjectOf(tokenString string) (string, error) {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExpiryOf returns the verified expiry of a token
func (c *Codec) ExpiryOf(tokenString string) (time.Time, error) {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt, nil
}

// PeekExpiry returns the expiry of a token whose signature verifies, even if
// that expiry has already passed. The revocation sweep uses it.
func (c *Codec) PeekExpiry(tokenString string) (time.Time, error) {
	claims, err := c.decode(c.peekParser, tokenString)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt.IsZero() {
		return time.Time{}, fmt.Errorf("%w: missing exp claim", ErrMalformedToken)
	}
	return claims.ExpiresAt, nil
}

func (c *Codec) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return c.key, nil
}

func (c *Codec) decode(parser *jwt.Parser, tokenString string) (*Claims, error) {
	mapClaims := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(tokenString, mapClaims, c.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedToken, ErrExpiredToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if !token.Valid {
		return nil, ErrMalformedToken
	}

	claims := &Claims{Extra: map[string]interface{}{}}

	if claims.Subject, err = mapClaims.GetSubject(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if exp, err := mapClaims.GetExpirationTime(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	} else if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	} else if iat != nil {
		claims.IssuedAt = iat.Time
	}
	if jti, ok := mapClaims["jti"].(string); ok {
		claims.ID = jti
	}
	for k, v := range mapClaims {
		if !registeredClaims[k] {
			claims.Extra[k] = v
		}
	}

	return claims, nil
}
