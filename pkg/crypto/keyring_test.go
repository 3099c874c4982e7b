package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyRing_VerifyKnownKey(t *testing.T) {
	kr := NewKeyRing()
	signer, err := NewEd25519Signer("node-1")
	require.NoError(t, err)

	msg := []byte("membership payload")
	sig, err := signer.Sign(msg)
	require.NoError(t, err)

	kr.Add(signer.KeyID(), signer.PublicKey())

	ok, err := kr.Verify("node-1", msg, sig)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestKeyRing_UnknownKeyFailsClosed(t *testing.T) {
	kr := NewKeyRing()
	_, err := kr.Verify("ghost", []byte("x"), []byte("y"))
	require.ErrorIs(t, err, ErrUnknownKey)
}

func TestKeyRing_TamperedSignatureRejected(t *testing.T) {
	kr := NewKeyRing()
	signer, err := NewEd25519Signer("node-1")
	require.NoError(t, err)
	kr.Add(signer.KeyID(), signer.PublicKey())

	sig, err := signer.Sign([]byte("original"))
	require.NoError(t, err)

	ok, err := kr.Verify("node-1", []byte("tampered"), sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeyRing_RevokedKeyIsUnknown(t *testing.T) {
	kr := NewKeyRing()
	signer, err := NewEd25519Signer("node-1")
	require.NoError(t, err)
	kr.Add(signer.KeyID(), signer.PublicKey())
	kr.Revoke("node-1")

	_, err = kr.Verify("node-1", []byte("x"), []byte("y"))
	require.ErrorIs(t, err, ErrUnknownKey)
}
