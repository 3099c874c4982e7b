package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEd25519Signer_SignAndVerify(t *testing.T) {
	signer, err := NewEd25519Signer("key-1")
	require.NoError(t, err)

	msg := []byte("issued_at=1|member=alice")
	sig, err := signer.Sign(msg)
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	require.True(t, signer.Verify(msg, sig))

	ok, err := VerifyDetached(signer.PublicKeyHex(), msg, sig)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEd25519Signer_TamperedMessageRejected(t *testing.T) {
	signer, err := NewEd25519Signer("key-1")
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("original"))
	require.NoError(t, err)

	require.False(t, signer.Verify([]byte("tampered"), sig))
}

func TestVerifyDetached_RejectsMalformedKey(t *testing.T) {
	_, err := VerifyDetached("not-hex", []byte("x"), []byte("y"))
	require.Error(t, err)
}
