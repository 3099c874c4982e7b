package attrstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Encryptor seals and opens attribute values before they reach a durable
// backend. A nil *Encryptor is valid and means "store plaintext" — the
// Redis and Postgres backends treat it as a no-op, since encryption is a
// backend-chosen behavior, not part of the store contract.
type Encryptor struct {
	key []byte // 32 bytes, derived via HKDF
}

// NewEncryptor derives a 256-bit AES key from secret via HKDF-SHA256. An
// empty secret disables encryption (returns nil, nil).
func NewEncryptor(secret string) (*Encryptor, error) {
	if secret == "" {
		return nil, nil
	}
	reader := hkdf.New(sha256.New, []byte(secret), []byte("trustfabric-attrstore"), []byte("at-rest-v1"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("attrstore: derive encryption key: %w", err)
	}
	return &Encryptor{key: key}, nil
}

// Seal encrypts plaintext with AES-256-GCM, prefixing the nonce.
func (e *Encryptor) Seal(plaintext []byte) ([]byte, error) {
	if e == nil {
		return plaintext, nil
	}
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("attrstore: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("attrstore: new gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("attrstore: generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal.
func (e *Encryptor) Open(blob []byte) ([]byte, error) {
	if e == nil {
		return blob, nil
	}
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("attrstore: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("attrstore: new gcm: %w", err)
	}
	if len(blob) < gcm.NonceSize() {
		return nil, fmt.Errorf("attrstore: ciphertext too short")
	}
	nonce, ciphertext := blob[:gcm.NonceSize()], blob[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("attrstore: decrypt: %w", err)
	}
	return plaintext, nil
}
