package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidDigestFormat = errors.New("invalid encoded token digest format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// DigestParams configures the Argon2id parameters used for token digests.
type DigestParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultDigestParams returns the parameters for access-token digests.
// Tokens carry 256 bits of entropy, so the cost is tuned for per-request
// verification rather than for low-entropy passwords.
func DefaultDigestParams() DigestParams {
	return DigestParams{
		Memory:      16 * 1024,
		Iterations:  2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// HashToken derives a salted Argon2id digest of token in PHC string format:
// $argon2id$v=19$m=16384,t=2,p=1$<base64-salt>$<base64-hash>
func HashToken(token string) (string, error) {
	params := DefaultDigestParams()

	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(token), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.Memory,
		params.Iterations,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// VerifyToken checks whether token matches the encoded digest.
// The comparison is constant time.
func VerifyToken(token, encodedDigest string) (bool, error) {
	params, salt, hash, err := decodeDigest(encodedDigest)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(token), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

// decodeDigest parses a PHC-formatted Argon2id digest.
func decodeDigest(encoded string) (DigestParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return DigestParams{}, nil, nil, ErrInvalidDigestFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return DigestParams{}, nil, nil, ErrInvalidDigestFormat
	}
	if version != argon2.Version {
		return DigestParams{}, nil, nil, ErrIncompatibleVersion
	}

	var params DigestParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return DigestParams{}, nil, nil, ErrInvalidDigestFormat
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return DigestParams{}, nil, nil, ErrInvalidDigestFormat
	}
	params.SaltLength = uint32(len(salt))

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return DigestParams{}, nil, nil, ErrInvalidDigestFormat
	}
	params.KeyLength = uint32(len(hash))

	return params, salt, hash, nil
}
