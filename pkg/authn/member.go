// Package authn implements the direct authenticator's two distinct
// worker types: MemberWorker (enrollment, member-facing) and
// AdminWorker (enroller registry management, admin-facing). Splitting
// these into separate types keeps admin-only operations unreachable
// from the member-facing address, rather than branching inside one
// polymorphic handler.
package authn

import (
	"context"
	"time"

	"github.com/trustmesh/node/pkg/attrstore"
	"github.com/trustmesh/node/pkg/credential"
	"github.com/trustmesh/node/pkg/identity"
	"github.com/trustmesh/node/pkg/netbus"
	"github.com/trustmesh/node/pkg/netmodel"
	"github.com/trustmesh/node/pkg/wire"
)

// CredentialRequest is the member-facing enrollment request body.
type CredentialRequest struct {
	Member string `cbor:"0,keyasint"`
}

// Clock returns the current Timestamp, abstracted for testability.
type Clock func() wire.Timestamp

// SystemClock returns wall-clock seconds since the Unix epoch.
func SystemClock() wire.Timestamp {
	return wire.Timestamp(time.Now().Unix())
}

// MemberWorker implements spec 4.6's member-facing surface: POST
// /enroll and GET /member/{id}. Every request must carry a verified
// secure-channel peer identity; a request without one, or with an
// invalid one, is answered Forbidden.
type MemberWorker struct {
	bus       *netbus.Bus
	addr      netbus.Address
	tokens    *identity.TokenManager
	enrollers *credential.EnrollerRegistry
	issuer    *credential.Issuer
	now       Clock
}

// NewMemberWorker builds the member-facing worker.
func NewMemberWorker(bus *netbus.Bus, addr netbus.Address, tokens *identity.TokenManager, enrollers *credential.EnrollerRegistry, issuer *credential.Issuer, now Clock) *MemberWorker {
	if now == nil {
		now = SystemClock
	}
	return &MemberWorker{bus: bus, addr: addr, tokens: tokens, enrollers: enrollers, issuer: issuer, now: now}
}

// Start registers the worker on the bus.
func (w *MemberWorker) Start(ctx context.Context) {
	w.bus.Register(ctx, w.addr, w.handle)
}

func (w *MemberWorker) handle(ctx context.Context, env netbus.Envelope) {
	hdr, body, err := wire.DecodeRequest(env.Payload)
	if err != nil {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{Status: wire.StatusBadRequest}, nil)
		return
	}

	peer, verified, err := netmodel.VerifiedPeer(w.tokens, env)
	if err != nil || !verified {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusForbidden}, nil)
		return
	}

	segments := netbus.SplitPath(hdr.Path)
	switch {
	case hdr.Path == "/enroll" && hdr.Method == wire.MethodPost:
		w.handleEnroll(ctx, hdr, body, peer, env.ReturnTo)
	case len(segments) == 2 && segments[0] == "member" && hdr.Method == wire.MethodGet:
		w.handleGetMember(ctx, hdr, segments[1], env.ReturnTo)
	case hdr.Path == "":
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusNotImplemented}, nil)
	case len(segments) == 2 && segments[0] == "member":
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusMethodNotAllowed}, nil)
	case hdr.Path == "/enroll":
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusMethodNotAllowed}, nil)
	default:
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusBadRequest}, nil)
	}
}

func (w *MemberWorker) handleEnroll(ctx context.Context, hdr wire.RequestHeader, body []byte, peer identity.ID, returnTo netbus.Address) {
	isEnroller, err := w.enrollers.IsEnroller(ctx, string(peer))
	if err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}
	if !isEnroller {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusForbidden}, nil)
		return
	}

	var req CredentialRequest
	if err := wire.Decode(body, &req); err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusBadRequest}, nil)
		return
	}

	signed, err := w.issuer.Issue(ctx, attrstore.ScopeMember, req.Member, w.now(), nil, nil)
	if err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}
	netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusOk}, signed)
}

func (w *MemberWorker) handleGetMember(ctx context.Context, hdr wire.RequestHeader, memberID string, returnTo netbus.Address) {
	signed, err := w.issuer.Lookup(ctx, attrstore.ScopeMember, memberID)
	if err == attrstore.ErrNotFound {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusNotFound}, nil)
		return
	}
	if err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}
	netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusOk}, signed)
}
