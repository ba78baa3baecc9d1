package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short SHA-256 digest of a token for log correlation.
// Raw tokens are never logged.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:6])
}
