package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Lifetime is how long a verification token stays valid after issuance.
const Lifetime = 30 * 24 * time.Hour

// New generates a cryptographically random 64-character hex verification token.
func New() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Expiry returns the expiry timestamp for a token issued now.
func Expiry() time.Time {
	return time.Now().UTC().Add(Lifetime)
}
