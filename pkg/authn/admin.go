package authn

import (
	"context"

	"github.com/trustmesh/node/pkg/attrstore"
	"github.com/trustmesh/node/pkg/credential"
	"github.com/trustmesh/node/pkg/netbus"
	"github.com/trustmesh/node/pkg/wire"
)

// RegisterEnrollerRequest is the admin-facing registration body.
type RegisterEnrollerRequest struct {
	Identity string `cbor:"0,keyasint"`
}

// AdminWorker implements spec 4.6's admin-facing surface: POST
// /register, GET /enroller/{id}, DELETE /deregister/{id}. It never
// inspects secure-channel peer identity — the transport layer is
// responsible for only exposing this address to trusted operators.
type AdminWorker struct {
	bus       *netbus.Bus
	addr      netbus.Address
	enrollers *credential.EnrollerRegistry
	now       Clock
}

// NewAdminWorker builds the admin-facing worker.
func NewAdminWorker(bus *netbus.Bus, addr netbus.Address, enrollers *credential.EnrollerRegistry, now Clock) *AdminWorker {
	if now == nil {
		now = SystemClock
	}
	return &AdminWorker{bus: bus, addr: addr, enrollers: enrollers, now: now}
}

// Start registers the worker on the bus.
func (w *AdminWorker) Start(ctx context.Context) {
	w.bus.Register(ctx, w.addr, w.handle)
}

func (w *AdminWorker) handle(ctx context.Context, env netbus.Envelope) {
	hdr, body, err := wire.DecodeRequest(env.Payload)
	if err != nil {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{Status: wire.StatusBadRequest}, nil)
		return
	}

	segments := netbus.SplitPath(hdr.Path)
	switch {
	case hdr.Path == "/register" && hdr.Method == wire.MethodPost:
		w.handleRegister(ctx, hdr, body, env.ReturnTo)
	case len(segments) == 2 && segments[0] == "enroller" && hdr.Method == wire.MethodGet:
		w.handleGetEnroller(ctx, hdr, segments[1], env.ReturnTo)
	case len(segments) == 2 && segments[0] == "deregister" && hdr.Method == wire.MethodDelete:
		w.handleDeregister(ctx, hdr, segments[1], env.ReturnTo)
	case hdr.Path == "":
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusNotImplemented}, nil)
	case hdr.Path == "/register" || (len(segments) == 2 && (segments[0] == "enroller" || segments[0] == "deregister")):
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusMethodNotAllowed}, nil)
	default:
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusBadRequest}, nil)
	}
}

func (w *AdminWorker) handleRegister(ctx context.Context, hdr wire.RequestHeader, body []byte, returnTo netbus.Address) {
	var req RegisterEnrollerRequest
	if err := wire.Decode(body, &req); err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusBadRequest}, nil)
		return
	}
	if err := w.enrollers.Register(ctx, req.Identity, w.now()); err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}
	netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusOk}, nil)
}

func (w *AdminWorker) handleGetEnroller(ctx context.Context, hdr wire.RequestHeader, identity string, returnTo netbus.Address) {
	info, err := w.enrollers.Get(ctx, identity)
	if err == attrstore.ErrNotFound {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusNotFound}, nil)
		return
	}
	if err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}
	netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusOk}, info)
}

func (w *AdminWorker) handleDeregister(ctx context.Context, hdr wire.RequestHeader, identity string, returnTo netbus.Address) {
	if err := w.enrollers.Deregister(ctx, identity); err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}
	netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusOk}, nil)
}
