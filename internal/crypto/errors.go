package crypto

import "errors"

var (
	// ErrFormat is returned when an encoded value is not hex(iv):hex(body).
	ErrFormat = errors.New("malformed ciphertext encoding")

	// ErrDecryption is returned when a well-formed value fails authentication
	// or padding checks (wrong key, corruption or tampering).
	ErrDecryption = errors.New("decryption failed")

	// ErrEncryption is returned when the underlying cipher cannot be set up.
	ErrEncryption = errors.New("encryption failed")

	// ErrInvalidKey is returned by ParseKey for key material that is neither
	// 64 hex characters nor exactly 32 raw bytes.
	ErrInvalidKey = errors.New("invalid encryption key")
)
