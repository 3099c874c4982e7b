// Package signer implements the node's signer worker: POST /sign takes
// arbitrary bytes and returns a detached signature computed with the
// node's own identity key. It performs no authorization of its own — it
// is a trusted local collaborator reachable only from the authenticator
// and authority workers over the bus.
package signer

import (
	"context"
	"time"

	"github.com/trustmesh/node/pkg/crypto"
	"github.com/trustmesh/node/pkg/netbus"
	"github.com/trustmesh/node/pkg/wire"
)

// Worker exposes the signer over a bus address.
type Worker struct {
	bus     *netbus.Bus
	addr    netbus.Address
	signer  crypto.Signer
	limiter *CallerRateLimiter
}

// Options configures optional Worker behavior.
type Options struct {
	// RPS and Burst bound how fast any one caller address may request
	// signatures. Zero RPS disables rate limiting.
	RPS   float64
	Burst int
}

// NewWorker builds a signer worker that will sign with signer once
// started at addr.
func NewWorker(bus *netbus.Bus, addr netbus.Address, signer crypto.Signer, opts Options) *Worker {
	w := &Worker{bus: bus, addr: addr, signer: signer}
	if opts.RPS > 0 {
		w.limiter = NewCallerRateLimiter(opts.RPS, opts.Burst, 3*time.Minute)
	}
	return w
}

// Start registers the worker's handler on the bus.
func (w *Worker) Start(ctx context.Context) {
	w.bus.Register(ctx, w.addr, w.handle)
}

// Stop releases the rate limiter's background goroutine, if any.
func (w *Worker) Stop() {
	if w.limiter != nil {
		w.limiter.Stop()
	}
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

	if w.limiter != nil && env.ReturnTo != "" && !w.limiter.Allow(env.ReturnTo) {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusForbidden}, nil)
		return
	}

	sig, err := w.signer.Sign(body)
	if err != nil {
		netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusInternalServerError}, nil)
		return
	}

	signed := wire.Signed{
		Data: body,
		Signature: wire.Signature{
			KeyID: w.signer.KeyID(),
			Bytes: sig,
		},
	}
	netbus.Reply(ctx, w.bus, env.ReturnTo, wire.ResponseHeader{ID: hdr.ID, Re: hdr.ID, Status: wire.StatusOk}, signed)
}
