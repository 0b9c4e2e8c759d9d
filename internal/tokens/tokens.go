// Package tokens implements the two link-token mechanisms used by account
// flows. They are not interchangeable: set-password and sign-in links use
// a random token stored only as a bcrypt hash and cleared after one use,
// while unsubscribe links carry an HMAC-signed value verified against a
// stored expected value.
package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// New generates a fresh random token. The raw value goes into the emailed
// link; only the bcrypt hash is stored.
func New() (raw, hash string, err error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)

	h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash token: %w", err)
	}
	return raw, string(h), nil
}

// Check verifies a presented raw token against the stored hash.
func Check(raw, hash string) bool {
	if raw == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}
