// Package netbus implements an in-process, address-routed message bus.
// Each worker owns a single mailbox and processes messages one at a time
// in FIFO order, mirroring the node's cooperative-actor scheduling model:
// unbounded parallelism across workers, strict ordering within one.
package netbus

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/trustmesh/node/pkg/obs"
)

// Address names a worker's mailbox on the bus.
type Address string

// Well-known addresses the medic's collector/responder pair lives at.
const (
	AddressPingCollector Address = "trust.ping.collector"
	AddressPingResponder Address = "trust.ping.responder"
)

// Envelope is one bus message: raw framed bytes plus the route metadata
// a secure channel or worker needs to reply.
type Envelope struct {
	To       Address
	ReturnTo Address
	Payload  []byte
	// PeerAssertion carries a verified secure-channel identity token
	// (see pkg/netmodel) when the transport layer attached one.
	PeerAssertion string
}

// Handler processes one inbound Envelope. It is invoked at most once at
// a time per worker; a Handler that blocks delays only its own mailbox.
type Handler func(ctx context.Context, env Envelope)

// worker is a single address's FIFO mailbox and its dispatch goroutine.
type worker struct {
	mailbox chan Envelope
	cancel  context.CancelFunc
	done    chan struct{}
}

// Bus routes Envelopes to registered worker addresses.
type Bus struct {
	mu      sync.RWMutex
	workers map[Address]*worker

	mailboxCapacity int
	obs             *obs.Provider
}

// SetObserver attaches an observability provider; every dispatched
// envelope is then wrapped in a span and counted toward its RED
// metrics. Nil disables instrumentation (the default).
func (b *Bus) SetObserver(p *obs.Provider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.obs = p
}

// New returns an empty Bus. mailboxCapacity bounds the inbound queue of
// each worker started with Register; Send to a full mailbox blocks the
// sender exactly as the teacher's bounded channels do. Only SendDropping
// gives up on a full mailbox instead of waiting.
func New(mailboxCapacity int) *Bus {
	if mailboxCapacity <= 0 {
		mailboxCapacity = 1
	}
	return &Bus{workers: make(map[Address]*worker), mailboxCapacity: mailboxCapacity}
}

// Register starts a worker at addr running handler over its mailbox.
// Registering an address twice replaces the previous worker, stopping it
// first.
func (b *Bus) Register(ctx context.Context, addr Address, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.workers[addr]; ok {
		existing.cancel()
		<-existing.done
	}
	b.workers[addr] = b.spawn(ctx, handler, b.mailboxCapacity, false)
}

// RegisterDropping starts a worker with its own mailbox capacity (the
// medic's collector uses 32). Envelopes sent to it with SendDropping are
// dropped once the mailbox is full; Send to it blocks like for any other
// worker.
func (b *Bus) RegisterDropping(ctx context.Context, addr Address, capacity int, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.workers[addr]; ok {
		existing.cancel()
		<-existing.done
	}
	b.workers[addr] = b.spawn(ctx, handler, capacity, true)
}

func (b *Bus) spawn(ctx context.Context, handler Handler, capacity int, dropOnFull bool) *worker {
	wctx, cancel := context.WithCancel(ctx)
	w := &worker{
		mailbox: make(chan Envelope, capacity),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		for {
			select {
			case <-wctx.Done():
				return
			case env := <-w.mailbox:
				b.dispatch(wctx, handler, env)
			}
		}
	}()
	_ = dropOnFull // not consulted: only SendDropping drops on a full mailbox
	return w
}

// dispatch invokes handler for env, wrapping the call in a span and the
// RED counters when an observer is attached.
func (b *Bus) dispatch(ctx context.Context, handler Handler, env Envelope) {
	b.mu.RLock()
	o := b.obs
	b.mu.RUnlock()
	if o == nil {
		handler(ctx, env)
		return
	}
	ctx, done := o.TrackOperation(ctx, "netbus.dispatch", attribute.String("netbus.to", string(env.To)))
	defer done(nil)
	handler(ctx, env)
}

// Send delivers env to its To address. Returns an error if the address
// is unregistered. If the target mailbox is full, Send waits for room
// and returns ctx's error if ctx ends first; it never drops the envelope,
// also for workers registered with RegisterDropping.
func (b *Bus) Send(ctx context.Context, env Envelope) error {
	b.mu.RLock()
	w, ok := b.workers[env.To]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("netbus: no worker registered at %s", env.To)
	}
	select {
	case w.mailbox <- env:
		return nil
	default:
	}
	// Mailbox full: block unless the context is already done. Dropping
	// workers rely on callers using SendDropping instead for the
	// non-blocking path.
	select {
	case w.mailbox <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendDropping attempts delivery without blocking; a full mailbox drops
// the envelope and returns false.
func (b *Bus) SendDropping(env Envelope) (delivered bool) {
	b.mu.RLock()
	w, ok := b.workers[env.To]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case w.mailbox <- env:
		return true
	default:
		return false
	}
}

// unregister stops and removes a single worker, used by Call to tear
// down its temporary reply mailbox once the round-trip completes.
func (b *Bus) unregister(addr Address) {
	b.mu.Lock()
	w, ok := b.workers[addr]
	if ok {
		delete(b.workers, addr)
	}
	b.mu.Unlock()
	if ok {
		w.cancel()
		<-w.done
	}
}

// Stop cancels every registered worker and waits for its loop to exit.
func (b *Bus) Stop() {
	b.mu.Lock()
	workers := make([]*worker, 0, len(b.workers))
	for _, w := range b.workers {
		workers = append(workers, w)
	}
	b.workers = make(map[Address]*worker)
	b.mu.Unlock()

	for _, w := range workers {
		w.cancel()
		<-w.done
	}
}
