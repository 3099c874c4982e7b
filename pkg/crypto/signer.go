// Package crypto provides the node's identity-key signing primitives.
//
// The vault/keystore that actually custodies private key material is an
// external collaborator; Ed25519Signer here is the thin in-process adapter
// the signer worker calls through (other workers reach it only by asking
// the signer worker over the bus). Nothing in this
// package performs authorization — callers decide who may invoke Sign.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Signer signs arbitrary payloads and reports the key identifier under
// which it signs.
type Signer interface {
	Sign(data []byte) ([]byte, error)
	KeyID() string
	PublicKeyHex() string
}

// Ed25519Signer is the default Signer implementation.
type Ed25519Signer struct {
	privKey ed25519.PrivateKey
	pubKey  ed25519.PublicKey
	keyID   string
}

// NewEd25519Signer generates a fresh Ed25519 key pair for keyID.
func NewEd25519Signer(keyID string) (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: key generation failed: %w", err)
	}
	return &Ed25519Signer{privKey: priv, pubKey: pub, keyID: keyID}, nil
}

// NewEd25519SignerFromKey wraps an existing private key (e.g. loaded from
// an external keystore) under keyID.
func NewEd25519SignerFromKey(priv ed25519.PrivateKey, keyID string) *Ed25519Signer {
	return &Ed25519Signer{
		privKey: priv,
		pubKey:  priv.Public().(ed25519.PublicKey),
		keyID:   keyID,
	}
}

// Sign returns a detached signature over data.
func (s *Ed25519Signer) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(s.privKey, data), nil
}

// KeyID returns the signer's key identifier.
func (s *Ed25519Signer) KeyID() string { return s.keyID }

// PublicKeyHex returns the hex-encoded public key.
func (s *Ed25519Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.pubKey)
}

// PublicKey returns the raw public key bytes.
func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.pubKey
}

// Verify checks signature against message using this signer's own key.
func (s *Ed25519Signer) Verify(message, signature []byte) bool {
	return ed25519.Verify(s.pubKey, message, signature)
}

// VerifyDetached verifies a detached signature against a hex-encoded
// public key, independent of any particular Signer instance.
func VerifyDetached(pubKeyHex string, message, signature []byte) (bool, error) {
	pubKey, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false, fmt.Errorf("crypto: invalid public key hex: %w", err)
	}
	if len(pubKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("crypto: invalid public key size %d", len(pubKey))
	}
	return ed25519.Verify(ed25519.PublicKey(pubKey), message, signature), nil
}
