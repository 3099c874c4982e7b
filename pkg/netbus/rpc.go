package netbus

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/trustmesh/node/pkg/wire"
)

var rpcCounter uint64

// nextReplyAddress returns a unique one-shot address for a single Call's
// reply, so concurrent callers never collide on the same mailbox.
func nextReplyAddress() Address {
	n := atomic.AddUint64(&rpcCounter, 1)
	return Address(fmt.Sprintf("trust.rpc.reply.%d", n))
}

// NewRequestID mints a fresh request header id by folding a random UUID
// down to the wire's 32-bit id field, rather than an incrementing
// counter, so ids stay unique across process restarts and concurrent
// callers without any shared sequence.
func NewRequestID() uint32 {
	id := uuid.New()
	return binary.BigEndian.Uint32(id[:4])
}

// Call sends a framed request to addr and blocks for its framed reply,
// the synchronous request/reply pattern every authenticator and the
// authority worker use to ask the signer worker for a signature. It
// registers a temporary reply mailbox for the duration of the call and
// tears it down afterward.
func Call(ctx context.Context, bus *Bus, addr Address, hdr wire.RequestHeader, body any) (wire.ResponseHeader, []byte, error) {
	if hdr.ID == 0 {
		hdr.ID = NewRequestID()
	}

	var payload []byte
	var err error
	if hdr.HasBody {
		payload, err = wire.EncodeRequest(hdr, body)
	} else {
		payload, err = wire.EncodeRequest(hdr, nil)
	}
	if err != nil {
		return wire.ResponseHeader{}, nil, fmt.Errorf("netbus: encode request: %w", err)
	}

	replyAddr := nextReplyAddress()
	replies := make(chan Envelope, 1)
	bus.Register(ctx, replyAddr, func(_ context.Context, env Envelope) {
		select {
		case replies <- env:
		default:
		}
	})
	defer bus.unregister(replyAddr)

	if err := bus.Send(ctx, Envelope{To: addr, ReturnTo: replyAddr, Payload: payload}); err != nil {
		return wire.ResponseHeader{}, nil, fmt.Errorf("netbus: send request: %w", err)
	}

	select {
	case env := <-replies:
		return wire.DecodeResponseFrame(env.Payload)
	case <-ctx.Done():
		return wire.ResponseHeader{}, nil, ctx.Err()
	}
}

// Reply frames hdr and body (if non-nil, which also forces hdr.HasBody)
// and sends it to returnTo. A no-op when returnTo is empty, which lets
// callers reply unconditionally without checking whether the original
// envelope requested one.
func Reply(ctx context.Context, bus *Bus, returnTo Address, hdr wire.ResponseHeader, body any) {
	if returnTo == "" {
		return
	}
	if body != nil {
		hdr.HasBody = true
	}
	payload, err := wire.EncodeResponse(hdr, body)
	if err != nil {
		return
	}
	_ = bus.Send(ctx, Envelope{To: returnTo, Payload: payload})
}
