package crypto

import (
	"crypto/ed25519"
	"fmt"
	"sync"
)

// ErrUnknownKey is returned when a key_id has no registered public key.
var ErrUnknownKey = fmt.Errorf("crypto: unknown key id")

// KeyRing resolves known identities' public keys for signature
// verification. The authority worker consults a KeyRing to turn a
// signature's key_id into the public key it must verify against; an
// identity absent from the ring is "unknown" in the sense of spec §4.8.
type KeyRing struct {
	mu   sync.RWMutex
	keys map[string][]byte // keyID -> raw Ed25519 public key
}

// NewKeyRing creates an empty KeyRing.
func NewKeyRing() *KeyRing {
	return &KeyRing{keys: make(map[string][]byte)}
}

// Add registers keyID's public key, overwriting any prior entry.
func (k *KeyRing) Add(keyID string, pubKey []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	cp := make([]byte, len(pubKey))
	copy(cp, pubKey)
	k.keys[keyID] = cp
}

// Revoke removes keyID from the ring.
func (k *KeyRing) Revoke(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, keyID)
}

// Lookup returns keyID's public key, or ErrUnknownKey.
func (k *KeyRing) Lookup(keyID string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	pub, ok := k.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, keyID)
	}
	return pub, nil
}

// Verify resolves keyID and checks signature over message.
// It returns ErrUnknownKey when keyID is not registered, distinguishing
// "unknown signer" from "signature did not verify" per spec §4.8 step 1.
func (k *KeyRing) Verify(keyID string, message, signature []byte) (bool, error) {
	pub, err := k.Lookup(keyID)
	if err != nil {
		return false, err
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("crypto: invalid public key size for %s", keyID)
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, signature), nil
}
