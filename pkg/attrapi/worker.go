// Package attrapi implements the attribute API worker (spec §4.4): the
// generic GET/DELETE surface over an authenticated attribute store,
// exposed at "/authenticated/{id}/attribute/{key}". It is the thin bus
// worker that the signer, authenticator, and authority workers' own
// scoped stores sit beside — this one exposes the store directly to
// collaborators that need free-form attribute bytes rather than one of
// the fixed record shapes the other workers persist.
package attrapi

import (
	"context"

	"github.com/trustmesh/node/pkg/attrstore"
	"github.com/trustmesh/node/pkg/netbus"
	"github.com/trustmesh/node/pkg/wire"
)

// ScopeAuthenticated is the attrstore scope this worker reads and
// writes under, keyed by the path's {id} segment.
const ScopeAuthenticated = "authenticated"

// Worker exposes attrstore.Store over the bus at the two paths spec 4.4
// names. It never exposes a Set operation — attributes are written by
// the external collaborator that owns the store directly, per the
// spec's GET/DELETE-only surface.
type Worker struct {
	bus   *netbus.Bus
	addr  netbus.Address
	store attrstore.Store
}

// NewWorker builds the attribute API worker over store.
func NewWorker(bus *netbus.Bus, addr netbus.Address, store attrstore.Store) *Worker {
	return &Worker{bus: bus, addr: addr, store: store}
}

// Start registers the worker on the bus.
func (w *Worker) Start(ctx context.Context) {
	w.bus.Register(ctx, w.addr, w.handle)
}

func (w *Worker) handle(ctx context.Context, env netbus.Envelope) {
	hdr, _, err := wire.DecodeRequest(env.Payload)
	if err != nil {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{Status: wire.StatusBadRequest}, nil)
		return
	}

	segments := netbus.SplitPath(hdr.Path)
	isAttributePath := len(segments) == 4 && segments[0] == "authenticated" && segments[2] == "attribute"

	switch {
	case isAttributePath && hdr.Method == wire.MethodGet:
		w.handleGet(ctx, hdr, segments[1], segments[3], env.ReturnTo)
	case isAttributePath && hdr.Method == wire.MethodDelete:
		w.handleDelete(ctx, hdr, segments[1], segments[3], env.ReturnTo)
	case hdr.Path == "":
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusNotImplemented}, nil)
	case isAttributePath:
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusMethodNotAllowed}, nil)
	default:
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusBadRequest}, nil)
	}
}

func (w *Worker) handleGet(ctx context.Context, hdr wire.RequestHeader, id, key string, returnTo netbus.Address) {
	value, err := w.store.Get(ctx, ScopeAuthenticated, id, key)
	if err == attrstore.ErrNotFound {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusNotFound}, nil)
		return
	}
	if err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}
	netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusOk}, value)
}

func (w *Worker) handleDelete(ctx context.Context, hdr wire.RequestHeader, id, key string, returnTo netbus.Address) {
	if err := w.store.Del(ctx, ScopeAuthenticated, id, key); err != nil {
		netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}
	netbus.Reply(ctx, w.bus, returnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusOk}, nil)
}
