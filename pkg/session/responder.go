package session

import (
	"context"

	"github.com/trustmesh/node/pkg/netbus"
)

// Responder is the trivial echo worker every pingable session address
// hosts: whatever Message it receives, it reflects unchanged to the
// envelope's return address.
type Responder struct {
	bus  *netbus.Bus
	addr netbus.Address
}

// NewResponder builds a Responder listening at addr.
func NewResponder(bus *netbus.Bus, addr netbus.Address) *Responder {
	return &Responder{bus: bus, addr: addr}
}

// Start registers the responder on the bus.
func (r *Responder) Start(ctx context.Context) {
	r.bus.Register(ctx, r.addr, r.handle)
}

func (r *Responder) handle(ctx context.Context, env netbus.Envelope) {
	if env.ReturnTo == "" {
		return
	}
	_ = r.bus.Send(ctx, netbus.Envelope{To: env.ReturnTo, Payload: env.Payload})
}
