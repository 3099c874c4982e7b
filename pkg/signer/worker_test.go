package signer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustmesh/node/pkg/crypto"
	"github.com/trustmesh/node/pkg/netbus"
	"github.com/trustmesh/node/pkg/wire"
)

const testAddr netbus.Address = "trust.signer"
const testCaller netbus.Address = "test.caller"

func newTestWorker(t *testing.T, opts Options) (*netbus.Bus, *Worker, *crypto.Ed25519Signer) {
	t.Helper()
	bus := netbus.New(8)
	s, err := crypto.NewEd25519Signer("node-key-1")
	require.NoError(t, err)
	w := NewWorker(bus, testAddr, s, opts)
	w.Start(context.Background())
	t.Cleanup(func() {
		w.Stop()
		bus.Stop()
	})
	return bus, w, s
}

func recvReply(t *testing.T, bus *netbus.Bus) netbus.Envelope {
	t.Helper()
	replies := make(chan netbus.Envelope, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	bus.Register(ctx, testCaller, func(_ context.Context, env netbus.Envelope) {
		replies <- env
	})
	select {
	case env := <-replies:
		return env
	case <-ctx.Done():
		t.Fatal("timed out waiting for reply")
		return netbus.Envelope{}
	}
}

func sendSignRequest(t *testing.T, bus *netbus.Bus, body []byte) netbus.Envelope {
	t.Helper()
	hdr := wire.RequestHeader{ID: 1, Method: wire.MethodPost, Path: "/sign", HasBody: body != nil}
	var payload []byte
	var err error
	if body != nil {
		payload, err = wire.EncodeRequest(hdr, body)
	} else {
		payload, err = wire.EncodeRequest(hdr, nil)
	}
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Send(ctx, netbus.Envelope{To: testAddr, ReturnTo: testCaller, Payload: payload}))
	return recvReply(t, bus)
}

func decodeResponse(t *testing.T, env netbus.Envelope) (wire.ResponseHeader, []byte) {
	t.Helper()
	hdrFrame, rest, err := wire.ReadFrame(env.Payload)
	require.NoError(t, err)
	var hdr wire.ResponseHeader
	require.NoError(t, wire.Decode(hdrFrame, &hdr))
	if !hdr.HasBody {
		return hdr, nil
	}
	bodyFrame, _, err := wire.ReadFrame(rest)
	require.NoError(t, err)
	return hdr, bodyFrame
}

func TestWorkerSignsBody(t *testing.T) {
	bus, _, s := newTestWorker(t, Options{})
	env := sendSignRequest(t, bus, []byte("issued_at=1|member=alice"))

	hdr, body := decodeResponse(t, env)
	require.Equal(t, wire.StatusOk, hdr.Status)
	require.True(t, hdr.HasBody)

	var signed wire.Signed
	require.NoError(t, wire.Decode(body, &signed))
	require.Equal(t, []byte("issued_at=1|member=alice"), signed.Data)
	require.Equal(t, s.KeyID(), signed.Signature.KeyID)
	require.True(t, s.Verify(signed.Data, signed.Signature.Bytes))
}

func TestWorkerRejectsWrongPath(t *testing.T) {
	bus, _, _ := newTestWorker(t, Options{})
	hdr := wire.RequestHeader{ID: 2, Method: wire.MethodPost, Path: "/other", HasBody: false}
	payload, err := wire.EncodeRequest(hdr, nil)
	require.NoError(t, err)

	require.NoError(t, bus.Send(context.Background(), netbus.Envelope{To: testAddr, ReturnTo: testCaller, Payload: payload}))
	env := recvReply(t, bus)
	respHdr, _ := decodeResponse(t, env)
	require.Equal(t, wire.StatusBadRequest, respHdr.Status)
}

func TestWorkerRejectsWrongMethod(t *testing.T) {
	bus, _, _ := newTestWorker(t, Options{})
	hdr := wire.RequestHeader{ID: 3, Method: wire.MethodGet, Path: "/sign", HasBody: false}
	payload, err := wire.EncodeRequest(hdr, nil)
	require.NoError(t, err)

	require.NoError(t, bus.Send(context.Background(), netbus.Envelope{To: testAddr, ReturnTo: testCaller, Payload: payload}))
	env := recvReply(t, bus)
	respHdr, _ := decodeResponse(t, env)
	require.Equal(t, wire.StatusMethodNotAllowed, respHdr.Status)
}

func TestWorkerRateLimitsPerCaller(t *testing.T) {
	bus, _, _ := newTestWorker(t, Options{RPS: 1, Burst: 1})

	env := sendSignRequest(t, bus, []byte("first"))
	hdr, _ := decodeResponse(t, env)
	require.Equal(t, wire.StatusOk, hdr.Status)

	env = sendSignRequest(t, bus, []byte("second"))
	hdr, _ = decodeResponse(t, env)
	require.Equal(t, wire.StatusForbidden, hdr.Status)
}
