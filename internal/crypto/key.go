package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// DeriveKey turns any configured secret into a 256-bit key. A 64 character hex
// string is decoded, a 32 byte secret is used as is, anything else is hashed
// with SHA-256.
func DeriveKey(secret string) []byte {
	if len(secret) == 2*KeySize {
		if key, err := hex.DecodeString(secret); err == nil {
			return key
		}
	}
	if len(secret) == KeySize {
		return []byte(secret)
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// ParseKey is the strict counterpart of DeriveKey used at startup. It refuses
// to hash arbitrary secrets so that a misconfigured key fails fast.
func ParseKey(secret string) ([]byte, error) {
	switch len(secret) {
	case 2 * KeySize:
		key, err := hex.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("%w: 64 character key must be hex", ErrInvalidKey)
		}
		return key, nil
	case KeySize:
		return []byte(secret), nil
	default:
		return nil, fmt.Errorf("%w: expected 64 hex characters or 32 bytes, got %d characters", ErrInvalidKey, len(secret))
	}
}

// GenerateKey returns a fresh random key encoded as 64 hex characters.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}
