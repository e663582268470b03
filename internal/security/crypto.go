package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// kdfSalt is the fixed application salt used when the master key is a
// passphrase rather than raw key material. The vault holds a single
// master key, so the salt only needs to be stable, not per-entry.
var kdfSalt = sha256.Sum256([]byte("symposium.provider-key-vault"))

// EncryptionService handles AES-256-GCM encryption for stored provider
// credentials.
type EncryptionService struct {
	masterKey []byte
}

// NewEncryptionService creates a new encryption service. The key may be
// 64 hex characters of raw key material; anything else is treated as a
// passphrase and stretched to 32 bytes with Argon2id. An empty key
// yields a random per-process key, so stored credentials will not
// survive a restart.
func NewEncryptionService(key string) (*EncryptionService, error) {
	if key == "" {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err != nil {
			return nil, fmt.Errorf("failed to generate random key: %w", err)
		}
		return &EncryptionService{masterKey: randomKey}, nil
	}

	if keyBytes, err := hex.DecodeString(key); err == nil && len(keyBytes) == 32 {
		return &EncryptionService{masterKey: keyBytes}, nil
	}

	// Argon2id parameters: time=1, memory=64MB, threads=4, keyLen=32
	derived := argon2.IDKey([]byte(key), kdfSalt[:16], 1, 64*1024, 4, 32)
	return &EncryptionService{masterKey: derived}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM
func (s *EncryptionService) Encrypt(plaintext []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM
func (s *EncryptionService) Decrypt(ciphertext, nonce []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// GenerateRandomString generates a random hex string of the specified byte length
func GenerateRandomString(byteLength int) (string, error) {
	bytes := make([]byte, byteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
