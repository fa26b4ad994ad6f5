// Package token mints and hashes opaque redeem tokens. The raw token is
// handed out exactly once; only its SHA-256 hash is ever persisted, so a
// leaked database row cannot be replayed as a usable token.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const rawTokenBytes = 32

// New generates a cryptographically random raw token and its storage hash.
func New() (raw string, hash string, err error) {
	buf := make([]byte, rawTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, Hash(raw), nil
}

// Hash returns the hex-encoded SHA-256 of a raw token string.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
