package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Ciphertexts carry this prefix so plaintext values written before
// encryption was in place still read back through Decrypt unchanged.
const encPrefix = "enc:"

// SecretKey seals tenant passwords and exported auth state with AES-256-GCM
// before they reach the store.
type SecretKey struct {
	key []byte
}

// NewSecretKey derives the key from CONDUCTOR_SECRET_KEY when set, hashed
// down to 256 bits. Without the variable a random key is generated once and
// persisted under ~/.conductor/secret.key so later runs keep decrypting
// what earlier runs wrote.
func NewSecretKey() (*SecretKey, error) {
	if raw := os.Getenv("CONDUCTOR_SECRET_KEY"); raw != "" {
		sum := sha256.Sum256([]byte(raw))
		return &SecretKey{key: sum[:]}, nil
	}

	key, err := persistentKey()
	if err != nil {
		return nil, err
	}
	return &SecretKey{key: key}, nil
}

func persistentKey() ([]byte, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir for secret key: %w", err)
	}
	keyPath := filepath.Join(home, ".conductor", "secret.key")

	if data, err := os.ReadFile(keyPath); err == nil && len(data) >= 32 {
		return data[:32], nil
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(keyPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("persist secret key: %w", err)
	}
	return key, nil
}

func (s *SecretKey) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext and returns it base64-encoded under the enc:
// prefix. Empty input stays empty.
func (s *SecretKey) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm, err := s.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values without the enc: prefix are returned
// as-is.
func (s *SecretKey) Decrypt(value string) (string, error) {
	if value == "" || !strings.HasPrefix(value, encPrefix) {
		return value, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encPrefix))
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := s.aead()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plaintext), nil
}

// MaskSecret keeps the last four characters visible, enough to tell
// credentials apart in the API without exposing them.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
