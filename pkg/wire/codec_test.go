package wire_test

import (
	"testing"

	"github.com/trustmesh/node/pkg/wire"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RequestHeader(t *testing.T) {
	hdr := wire.RequestHeader{ID: 7, Method: wire.MethodPost, Path: "/enroll", HasBody: true}
	b, err := wire.Encode(hdr)
	require.NoError(t, err)

	var out wire.RequestHeader
	require.NoError(t, wire.Decode(b, &out))
	require.Equal(t, hdr, out)
}

func TestEncodeDecode_Signed(t *testing.T) {
	signed := wire.Signed{
		Data: []byte("payload"),
		Signature: wire.Signature{
			KeyID: "node-1",
			Bytes: []byte{0x01, 0x02, 0x03},
		},
	}
	b, err := wire.Encode(signed)
	require.NoError(t, err)

	var out wire.Signed
	require.NoError(t, wire.Decode(b, &out))
	require.Equal(t, signed, out)
}

func TestEncodeDecode_MemberCredentialWithOptionalFields(t *testing.T) {
	email := "alice@example.com"
	verified := true
	cred := wire.MemberCredential{
		IssuedAt:      1234,
		Member:        "alice",
		Email:         &email,
		EmailVerified: &verified,
	}
	b, err := wire.Encode(cred)
	require.NoError(t, err)

	var out wire.MemberCredential
	require.NoError(t, wire.Decode(b, &out))
	require.Equal(t, cred.Member, out.Member)
	require.NotNil(t, out.Email)
	require.Equal(t, email, *out.Email)
	require.NotNil(t, out.EmailVerified)
	require.True(t, *out.EmailVerified)
}

func TestEncodeDecode_MemberCredentialOmitsNilOptionalFields(t *testing.T) {
	cred := wire.MemberCredential{IssuedAt: 1, Member: "bob"}
	b, err := wire.Encode(cred)
	require.NoError(t, err)

	var out wire.MemberCredential
	require.NoError(t, wire.Decode(b, &out))
	require.Nil(t, out.Email)
	require.Nil(t, out.EmailVerified)
}

func TestFrameRoundTrip(t *testing.T) {
	hdr := wire.RequestHeader{ID: 1, Method: wire.MethodGet, Path: "/member/alice"}
	b, err := wire.Encode(hdr)
	require.NoError(t, err)

	framed := wire.Frame(b)
	record, rest, err := wire.ReadFrame(framed)
	require.NoError(t, err)
	require.Empty(t, rest)

	var out wire.RequestHeader
	require.NoError(t, wire.Decode(record, &out))
	require.Equal(t, hdr, out)
}

func TestReadFrame_RejectsShortBuffer(t *testing.T) {
	_, _, err := wire.ReadFrame([]byte{0x00, 0x01})
	require.Error(t, err)
}

func TestReadFrame_RejectsTruncatedRecord(t *testing.T) {
	_, _, err := wire.ReadFrame([]byte{0x00, 0x00, 0x00, 0x10, 0x01})
	require.Error(t, err)
}

func TestEncodeRequest_MultiFrame(t *testing.T) {
	hdr := wire.RequestHeader{ID: 1, Method: wire.MethodPost, Path: "/sign", HasBody: true}
	blob, err := wire.EncodeRequest(hdr, []byte("payload"))
	require.NoError(t, err)

	record, rest, err := wire.ReadFrame(blob)
	require.NoError(t, err)
	var outHdr wire.RequestHeader
	require.NoError(t, wire.Decode(record, &outHdr))
	require.Equal(t, hdr, outHdr)

	bodyRecord, rest2, err := wire.ReadFrame(rest)
	require.NoError(t, err)
	require.Empty(t, rest2)
	require.Equal(t, []byte("payload"), bodyRecord)
}

func TestEncodeRequest_TypedBodyIsCBOREncoded(t *testing.T) {
	hdr := wire.RequestHeader{ID: 1, Method: wire.MethodPost, Path: "/register", HasBody: true}
	blob, err := wire.EncodeRequest(hdr, wire.EnrollerInfo{RegisteredAt: 42})
	require.NoError(t, err)

	_, rest, err := wire.ReadFrame(blob)
	require.NoError(t, err)
	bodyRecord, _, err := wire.ReadFrame(rest)
	require.NoError(t, err)

	var out wire.EnrollerInfo
	require.NoError(t, wire.Decode(bodyRecord, &out))
	require.Equal(t, wire.Timestamp(42), out.RegisteredAt)
}

func TestEncodeRequest_RequiresBodyWhenDeclared(t *testing.T) {
	hdr := wire.RequestHeader{ID: 1, Method: wire.MethodPost, Path: "/sign", HasBody: true}
	_, err := wire.EncodeRequest(hdr, nil)
	require.Error(t, err)
}
