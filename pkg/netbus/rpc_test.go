package netbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustmesh/node/pkg/wire"
)

func TestCallRoundTrips(t *testing.T) {
	bus := New(4)
	defer bus.Stop()

	const echoAddr Address = "test.echo"
	bus.Register(context.Background(), echoAddr, func(ctx context.Context, env Envelope) {
		hdrFrame, rest, err := wire.ReadFrame(env.Payload)
		require.NoError(t, err)
		var hdr wire.RequestHeader
		require.NoError(t, wire.Decode(hdrFrame, &hdr))

		respHdr := wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusOk, HasBody: hdr.HasBody}
		var respPayload []byte
		if hdr.HasBody {
			bodyFrame, _, err := wire.ReadFrame(rest)
			require.NoError(t, err)
			var body string
			require.NoError(t, wire.Decode(bodyFrame, &body))
			respPayload, err = wire.EncodeResponse(respHdr, body)
			require.NoError(t, err)
		} else {
			respPayload, err = wire.EncodeResponse(respHdr, nil)
			require.NoError(t, err)
		}
		require.NoError(t, bus.Send(ctx, Envelope{To: env.ReturnTo, Payload: respPayload}))
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	hdr := wire.RequestHeader{ID: 7, Method: wire.MethodPost, Path: "/echo", HasBody: true}
	respHdr, body, err := Call(ctx, bus, echoAddr, hdr, "hello")
	require.NoError(t, err)
	require.Equal(t, wire.StatusOk, respHdr.Status)

	var decoded string
	require.NoError(t, wire.Decode(body, &decoded))
	require.Equal(t, "hello", decoded)
}

func TestCallTimesOutWhenNoReply(t *testing.T) {
	bus := New(4)
	defer bus.Stop()

	const blackhole Address = "test.blackhole"
	bus.Register(context.Background(), blackhole, func(ctx context.Context, env Envelope) {})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	hdr := wire.RequestHeader{ID: 1, Method: wire.MethodPost, Path: "/sign", HasBody: false}
	_, _, err := Call(ctx, bus, blackhole, hdr, nil)
	require.Error(t, err)
}

func TestNewRequestIDIsUnique(t *testing.T) {
	seen := make(map[uint32]bool)
	for i := 0; i < 100; i++ {
		id := NewRequestID()
		require.False(t, seen[id], "duplicate request id %d", id)
		seen[id] = true
	}
}

func TestCallAssignsRequestIDWhenZero(t *testing.T) {
	bus := New(4)
	defer bus.Stop()

	const echoAddr Address = "test.echo.id"
	var gotID uint32
	bus.Register(context.Background(), echoAddr, func(ctx context.Context, env Envelope) {
		hdrFrame, _, err := wire.ReadFrame(env.Payload)
		require.NoError(t, err)
		var hdr wire.RequestHeader
		require.NoError(t, wire.Decode(hdrFrame, &hdr))
		gotID = hdr.ID
		respPayload, err := wire.EncodeResponse(wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusOk}, nil)
		require.NoError(t, err)
		require.NoError(t, bus.Send(ctx, Envelope{To: env.ReturnTo, Payload: respPayload}))
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err := Call(ctx, bus, echoAddr, wire.RequestHeader{Method: wire.MethodPost, Path: "/sign"}, nil)
	require.NoError(t, err)
	require.NotZero(t, gotID)
}

func TestCallUnknownAddress(t *testing.T) {
	bus := New(4)
	defer bus.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	hdr := wire.RequestHeader{ID: 1, Method: wire.MethodPost, Path: "/sign", HasBody: false}
	_, _, err := Call(ctx, bus, Address("nowhere"), hdr, nil)
	require.Error(t, err)
}
