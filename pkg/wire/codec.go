package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var encMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: invalid cbor encoding options: %v", err))
	}
	return mode
}()

// Encode serializes any record into its canonical CBOR form.
func Encode(v any) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return b, nil
}

// Decode deserializes a CBOR blob into v, which must be a pointer.
func Decode(data []byte, v any) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: decode: %w", err)
	}
	return nil
}

// Frame prefixes a single encoded record with its big-endian uint32
// length, producing the length-prefixed byte-message every worker
// exchange carries over the bus.
func Frame(data []byte) []byte {
	framed := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(framed, uint32(len(data)))
	copy(framed[4:], data)
	return framed
}

// ReadFrame consumes one length-prefixed record from r, returning the
// record's bytes and the bytes remaining after it.
func ReadFrame(r []byte) (record, rest []byte, err error) {
	if len(r) < 4 {
		return nil, nil, fmt.Errorf("wire: frame too short for length prefix")
	}
	n := binary.BigEndian.Uint32(r)
	if uint64(len(r)) < uint64(4+n) {
		return nil, nil, fmt.Errorf("wire: frame declares %d bytes, only %d available", n, len(r)-4)
	}
	return r[4 : 4+n], r[4+n:], nil
}

// encodeBody frames body for inclusion after a header. A []byte body is
// framed as-is (the signer worker's "arbitrary bytes" contract, and the
// form every Signed.Data payload takes); any other type is CBOR-encoded
// first, covering the typed request/response bodies every other worker
// exchanges.
func encodeBody(body any) ([]byte, error) {
	if raw, ok := body.([]byte); ok {
		return Frame(raw), nil
	}
	bodyBytes, err := Encode(body)
	if err != nil {
		return nil, err
	}
	return Frame(bodyBytes), nil
}

// DecodeRequest parses a framed RequestHeader and its optional body from
// payload, the inbound form every worker receives over the bus.
func DecodeRequest(payload []byte) (RequestHeader, []byte, error) {
	headerFrame, rest, err := ReadFrame(payload)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	var hdr RequestHeader
	if err := Decode(headerFrame, &hdr); err != nil {
		return RequestHeader{}, nil, err
	}
	if !hdr.HasBody {
		return hdr, nil, nil
	}
	bodyFrame, _, err := ReadFrame(rest)
	if err != nil {
		return RequestHeader{}, nil, err
	}
	return hdr, bodyFrame, nil
}

// DecodeResponseFrame parses a framed ResponseHeader and its optional
// body from payload, the form every worker's reply takes.
func DecodeResponseFrame(payload []byte) (ResponseHeader, []byte, error) {
	hdrFrame, rest, err := ReadFrame(payload)
	if err != nil {
		return ResponseHeader{}, nil, err
	}
	var hdr ResponseHeader
	if err := Decode(hdrFrame, &hdr); err != nil {
		return ResponseHeader{}, nil, err
	}
	if !hdr.HasBody {
		return hdr, nil, nil
	}
	bodyFrame, _, err := ReadFrame(rest)
	if err != nil {
		return ResponseHeader{}, nil, err
	}
	return hdr, bodyFrame, nil
}

// EncodeRequest frames a RequestHeader, followed by body when
// hdr.HasBody is set (a nil body is then an error; without HasBody the
// body is ignored).
func EncodeRequest(hdr RequestHeader, body any) ([]byte, error) {
	var buf bytes.Buffer
	hdrBytes, err := Encode(hdr)
	if err != nil {
		return nil, err
	}
	buf.Write(Frame(hdrBytes))
	if hdr.HasBody {
		if body == nil {
			return nil, fmt.Errorf("wire: RequestHeader.HasBody is true but body is nil")
		}
		framed, err := encodeBody(body)
		if err != nil {
			return nil, err
		}
		buf.Write(framed)
	}
	return buf.Bytes(), nil
}

// EncodeResponse frames a ResponseHeader, followed by body when
// hdr.HasBody is set (a nil body is then an error; without HasBody the
// body is ignored).
func EncodeResponse(hdr ResponseHeader, body any) ([]byte, error) {
	var buf bytes.Buffer
	hdrBytes, err := Encode(hdr)
	if err != nil {
		return nil, err
	}
	buf.Write(Frame(hdrBytes))
	if hdr.HasBody {
		if body == nil {
			return nil, fmt.Errorf("wire: ResponseHeader.HasBody is true but body is nil")
		}
		framed, err := encodeBody(body)
		if err != nil {
			return nil, err
		}
		buf.Write(framed)
	}
	return buf.Bytes(), nil
}
