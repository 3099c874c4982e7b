package authority

import (
	"context"
	"fmt"

	"github.com/trustmesh/node/pkg/crypto"
	"github.com/trustmesh/node/pkg/netbus"
	"github.com/trustmesh/node/pkg/wire"
)

// Clock returns the current Timestamp, abstracted for testability.
type Clock func() wire.Timestamp

// Worker implements the authority's single POST /sign address (spec
// 4.8). Every accepted flow first verifies the caller's signature over
// the request's data against the known-identity KeyRing; only the
// Oauth2 flow goes on to build and sign a Membership record.
type Worker struct {
	bus        *netbus.Bus
	addr       netbus.Address
	signerAddr netbus.Address
	identities *crypto.KeyRing
	now        Clock
}

// NewWorker wires the authority worker to the signer it delegates
// signing to and the identity store it verifies inbound signatures
// against.
func NewWorker(bus *netbus.Bus, addr, signerAddr netbus.Address, identities *crypto.KeyRing, now Clock) *Worker {
	return &Worker{bus: bus, addr: addr, signerAddr: signerAddr, identities: identities, now: now}
}

// Start registers the worker on the bus.
func (w *Worker) Start(ctx context.Context) {
	w.bus.Register(ctx, w.addr, w.handle)
}

func (w *Worker) handle(ctx context.Context, env netbus.Envelope) {
	hdr, body, err := wire.DecodeRequest(env.Payload)
	if err != nil {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{Status: wire.StatusBadRequest}, nil)
		return
	}

	if hdr.Path == "" {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusNotImplemented}, nil)
		return
	}
	if hdr.Path != "/sign" {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusBadRequest}, nil)
		return
	}
	if hdr.Method != wire.MethodPost {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusMethodNotAllowed}, nil)
		return
	}

	var req Request
	if err := wire.Decode(body, &req); err != nil {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusBadRequest}, nil)
		return
	}

	ok, err := w.identities.Verify(req.Signature.KeyID, req.Data, req.Signature.Bytes)
	if err != nil {
		// Unknown signer: spec step 1's "Invalid" also maps to Unauthorized.
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusUnauthorized}, nil)
		return
	}
	if !ok {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusUnauthorized}, nil)
		return
	}

	switch req.Kind {
	case KindOAuth2:
		w.handleOAuth2(ctx, hdr, req, env.ReturnTo)
	case KindCreateSpace, KindCreateProject:
		// Placeholders beyond signature verification, per spec 4.8 point 3.
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusNotImplemented}, nil)
	default:
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusBadRequest}, nil)
	}
}

func (w *Worker) handleOAuth2(ctx context.Context, hdr wire.RequestHeader, req Request, returnTo netbus.Address) {
	var payload OAuth2Payload
	if err := wire.Decode(req.Data, &payload); err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusBadRequest}, nil)
		return
	}

	pubKey, err := w.identities.Lookup(req.Signature.KeyID)
	if err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusUnauthorized}, nil)
		return
	}

	membership := wire.Membership{
		IssuedAt:  w.now(),
		KeyID:     req.Signature.KeyID,
		PublicKey: pubKey,
	}
	data, err := wire.Encode(membership)
	if err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}

	signed, err := w.sign(ctx, data)
	if err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}

	netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusOk}, signed)
}

func (w *Worker) sign(ctx context.Context, data []byte) (wire.Signed, error) {
	hdr := wire.RequestHeader{Method: wire.MethodPost, Path: "/sign", HasBody: true}
	respHdr, body, err := netbus.Call(ctx, w.bus, w.signerAddr, hdr, data)
	if err != nil {
		return wire.Signed{}, fmt.Errorf("authority: call signer: %w", err)
	}
	if respHdr.Status != wire.StatusOk {
		return wire.Signed{}, fmt.Errorf("authority: signer returned status %d", respHdr.Status)
	}
	var signed wire.Signed
	if err := wire.Decode(body, &signed); err != nil {
		return wire.Signed{}, fmt.Errorf("authority: decode signer response: %w", err)
	}
	return signed, nil
}
