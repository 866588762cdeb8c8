package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced by Decrypt. Callers must treat either one as "this
// credential is unusable" and never fall back to the raw stored value.
var (
	// ErrInvalidFormat means the envelope does not parse as nonce:tag:ciphertext hex
	ErrInvalidFormat = errors.New("invalid ciphertext format")
	// ErrIntegrityFailure means authentication of the ciphertext failed,
	// either the data was tampered with or it was encrypted under another key
	ErrIntegrityFailure = errors.New("ciphertext integrity check failed")
)

const (
	nonceSize = 12 // GCM standard nonce size
	tagSize   = 16
)

// Encryptor wraps secrets with AES-256-GCM before they are persisted.
// Envelopes are self-describing hex strings of the form nonce:tag:ciphertext,
// so no external metadata is needed to decrypt them later.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor from a 32-byte key
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := e.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	), nil
}

// Decrypt opens an envelope produced by Encrypt. It returns ErrInvalidFormat
// if the envelope is malformed and ErrIntegrityFailure if tag verification
// fails.
func (e *Encryptor) Decrypt(envelope string) (string, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 fields, got %d", ErrInvalidFormat, len(parts))
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", fmt.Errorf("%w: bad nonce field", ErrInvalidFormat)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return "", fmt.Errorf("%w: bad tag field", ErrInvalidFormat)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext field", ErrInvalidFormat)
	}

	plaintext, err := e.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrIntegrityFailure
	}
	return string(plaintext), nil
}
