package oauth2authn

import (
	"context"

	"github.com/trustmesh/node/pkg/attrstore"
	"github.com/trustmesh/node/pkg/credential"
	"github.com/trustmesh/node/pkg/identity"
	"github.com/trustmesh/node/pkg/netbus"
	"github.com/trustmesh/node/pkg/netmodel"
	"github.com/trustmesh/node/pkg/wire"
)

// Clock returns the current Timestamp, abstracted for testability.
type Clock func() wire.Timestamp

// CredentialRequest is the oauth2 registration request body.
type CredentialRequest struct {
	AccessToken string `cbor:"0,keyasint"`
}

// Worker implements spec 4.7's single address: POST /register and GET
// /member/{id}. The caller's identity always comes from the verified
// secure-channel assertion, never from the access token itself.
type Worker struct {
	bus     *netbus.Bus
	addr    netbus.Address
	tokens  *identity.TokenManager
	fetcher ProfileFetcher
	issuer  *credential.Issuer
	now     Clock
}

// NewWorker builds the oauth2 authenticator worker.
func NewWorker(bus *netbus.Bus, addr netbus.Address, tokens *identity.TokenManager, fetcher ProfileFetcher, issuer *credential.Issuer, now Clock) *Worker {
	return &Worker{bus: bus, addr: addr, tokens: tokens, fetcher: fetcher, issuer: issuer, now: now}
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

	peer, verified, err := netmodel.VerifiedPeer(w.tokens, env)
	if err != nil || !verified {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusForbidden}, nil)
		return
	}

	segments := netbus.SplitPath(hdr.Path)
	switch {
	case hdr.Path == "/register" && hdr.Method == wire.MethodPost:
		w.handleRegister(ctx, hdr, body, peer, env.ReturnTo)
	case len(segments) == 2 && segments[0] == "member" && hdr.Method == wire.MethodGet:
		w.handleGetMember(ctx, hdr, segments[1], env.ReturnTo)
	case hdr.Path == "":
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusNotImplemented}, nil)
	case hdr.Path == "/register" || (len(segments) == 2 && segments[0] == "member"):
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusMethodNotAllowed}, nil)
	default:
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusBadRequest}, nil)
	}
}

func (w *Worker) handleRegister(ctx context.Context, hdr wire.RequestHeader, body []byte, peer identity.ID, returnTo netbus.Address) {
	var req CredentialRequest
	if err := wire.Decode(body, &req); err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusBadRequest}, nil)
		return
	}

	profile, outcome, err := w.fetcher.Fetch(ctx, req.AccessToken)
	switch outcome {
	case ProfileOutcomeUnauthorized:
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusUnauthorized}, nil)
		return
	case ProfileOutcomeError:
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}
	if err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}

	email := profile.Email
	verified := profile.EmailVerified
	signed, err := w.issuer.Issue(ctx, attrstore.ScopeOAuth2, string(peer), w.now(), &email, &verified)
	if err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}
	netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusOk}, signed)
}

func (w *Worker) handleGetMember(ctx context.Context, hdr wire.RequestHeader, memberID string, returnTo netbus.Address) {
	signed, err := w.issuer.Lookup(ctx, attrstore.ScopeOAuth2, memberID)
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
