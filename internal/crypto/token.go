package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// TokenPrefix marks bridge access tokens so they are recognisable in logs
	// and secret scanners.
	TokenPrefix = "icb_"

	tokenBytes = 32
)

// GenerateToken returns a new random bearer token. The plaintext is shown to
// the user once; only its digest is persisted.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateTokenID returns a short public identifier used to list and revoke
// tokens without exposing them.
func GenerateTokenID() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Fingerprint returns an unsalted SHA-256 of token, suitable only as an
// in-memory lookup key.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// LooksLikeToken reports whether s has the shape of a generated token.
func LooksLikeToken(s string) bool {
	body, ok := strings.CutPrefix(s, TokenPrefix)
	if !ok {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	return err == nil && len(raw) == tokenBytes
}
