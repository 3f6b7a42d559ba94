package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
)

// Session tokens are sealed at rest with AES-GCM under a per-user key.
// Not a replacement for OS keychains but keeps jwts out of plain sqlite rows.

const sealedPrefix = "v1:"

var ErrCiphertextTooShort = errors.New("secrets: ciphertext too short")

// Box seals and opens session tokens.
type Box struct {
	gcm cipher.AEAD
}

// NewBox builds a Box from a 32 byte key.
func NewBox(key []byte) (*Box, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: gcm: %w", err)
	}
	return &Box{gcm: gcm}, nil
}

// NewUserBox derives the key from the OS user running the client.
func NewUserBox() (*Box, error) {
	return NewBox(UserKey())
}

// UserKey returns the per-user sealing key.
func UserKey() []byte {
	base := fmt.Sprintf("jerboa-%s-%s", runtime.GOOS, os.Getenv("USER"))
	hash := sha256.Sum256([]byte(base))
	return hash[:]
}

// Seal encrypts token. The empty token (anonymous) stays empty.
func (b *Box) Seal(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	nonce := make([]byte, b.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets: nonce: %w", err)
	}
	ct := b.gcm.Seal(nonce, nonce, []byte(token), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(ct), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	if len(sealed) < len(sealedPrefix) || sealed[:len(sealedPrefix)] != sealedPrefix {
		return "", fmt.Errorf("secrets: unknown token format")
	}
	raw, err := base64.StdEncoding.DecodeString(sealed[len(sealedPrefix):])
	if err != nil {
		return "", fmt.Errorf("secrets: decode: %w", err)
	}
	if len(raw) < b.gcm.NonceSize() {
		return "", ErrCiphertextTooShort
	}
	nonce, body := raw[:b.gcm.NonceSize()], raw[b.gcm.NonceSize():]
	pt, err := b.gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("secrets: open: %w", err)
	}
	return string(pt), nil
}
