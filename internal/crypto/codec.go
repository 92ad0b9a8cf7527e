package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	ivSize    = aes.BlockSize
	tagSize   = sha256.Size
	separator = ":"
	macInfo   = "jobboard/cv-content/hmac-sha256"
)

// Codec encrypts and decrypts single text blobs with AES-256-CBC. The encoded
// form is hex(iv) ":" hex(ciphertext || tag), where tag is an HMAC-SHA256 over
// iv and ciphertext keyed with a subkey of the configured key.
type Codec struct {
	encKey []byte
	macKey []byte
}

// NewCodec builds a Codec from the configured secret. In strict mode the
// secret must already be 256-bit key material (see ParseKey); otherwise it is
// run through DeriveKey.
func NewCodec(secret string, strict bool) (*Codec, error) {
	var key []byte
	if strict {
		parsed, err := ParseKey(secret)
		if err != nil {
			return nil, err
		}
		key = parsed
	} else {
		key = DeriveKey(secret)
	}
	return newCodecFromKey(key)
}

func newCodecFromKey(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes", ErrInvalidKey, KeySize)
	}

	macKey := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, []byte(macInfo)), macKey); err != nil {
		return nil, fmt.Errorf("derive mac key: %w", err)
	}

	encKey := make([]byte, KeySize)
	copy(encKey, key)
	return &Codec{encKey: encKey, macKey: macKey}, nil
}

// Encrypt returns the encoded ciphertext of plaintext under a fresh random IV.
func (c *Codec) Encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("%w: generate iv: %v", ErrEncryption, err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	body := make([]byte, len(padded), len(padded)+tagSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(body, padded)
	body = append(body, c.tag(iv, body)...)

	return hex.EncodeToString(iv) + separator + hex.EncodeToString(body), nil
}

// EncryptString is a convenience wrapper over Encrypt for text fields.
func (c *Codec) EncryptString(plaintext string) (string, error) {
	return c.Encrypt([]byte(plaintext))
}

// Decrypt reverses Encrypt. Structural problems yield ErrFormat; anything that
// fails authentication or unpadding yields ErrDecryption.
func (c *Codec) Decrypt(encoded string) ([]byte, error) {
	parts := strings.Split(encoded, separator)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: expected 2 segments, got %d", ErrFormat, len(parts))
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: iv is not hex", ErrFormat)
	}
	if len(iv) != ivSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", ErrFormat, ivSize)
	}
	body, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not hex", ErrFormat)
	}

	if len(body) < aes.BlockSize+tagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}
	ciphertext, tag := body[:len(body)-tagSize], body[len(body)-tagSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not block aligned", ErrDecryption)
	}
	if !hmac.Equal(tag, c.tag(iv, ciphertext)) {
		return nil, fmt.Errorf("%w: authentication failed", ErrDecryption)
	}

	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return plaintext, nil
}

// DecryptString is a convenience wrapper over Decrypt for text fields.
func (c *Codec) DecryptString(encoded string) (string, error) {
	plaintext, err := c.Decrypt(encoded)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// GenerateID returns a random (version 4, RFC 4122 variant) UUID in canonical
// lowercase form.
func (c *Codec) GenerateID() (string, error) {
	return GenerateID()
}

// GenerateID is the package level form of Codec.GenerateID.
func GenerateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

func (c *Codec) tag(iv, ciphertext []byte) []byte {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	return mac.Sum(nil)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data), len(data)+n)
	copy(padded, data)
	return append(padded, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
