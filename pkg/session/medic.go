package session

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/trustmesh/node/pkg/netbus"
	"github.com/trustmesh/node/pkg/obs"
	"github.com/trustmesh/node/pkg/wire"
)

// DefaultInterval is the medic's default liveness poll period (spec
// 4.9's DELAY).
const DefaultInterval = 7 * time.Second

// DefaultMaxConnect bounds how long a single replacement invocation may
// run before it is treated as a failure.
const DefaultMaxConnect = 7 * time.Second

type replacementResult struct {
	key     wire.SessionKey
	address netbus.Address
	err     error
}

// Medic runs the periodic liveness loop over a Registry: dispatching
// pings to Active sessions, collecting pongs via the collector worker,
// and driving cascaded replacement when a session stops answering.
type Medic struct {
	bus           *netbus.Bus
	registry      *Registry
	interval      time.Duration
	maxConnect    time.Duration
	collectorAddr netbus.Address

	pongs   chan wire.Message
	results chan replacementResult

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	obs          *obs.Provider
	pingsSent    metric.Int64Counter
	pongsMatched metric.Int64Counter
	replacements metric.Int64Counter
}

// SetObserver instruments the medic's cycle with a span and with
// pings-sent/pongs-matched/replacements-triggered counters, without
// altering its control flow or timing. Nil disables instrumentation
// (the default). Call before Start.
func (m *Medic) SetObserver(p *obs.Provider) {
	m.obs = p
	if p == nil {
		return
	}
	meter := p.Meter()
	var err error
	if m.pingsSent, err = meter.Int64Counter("trustmesh.node.medic.pings_sent",
		metric.WithDescription("Liveness pings dispatched by the medic")); err != nil {
		slog.Warn("medic: register pings_sent counter", "error", err)
	}
	if m.pongsMatched, err = meter.Int64Counter("trustmesh.node.medic.pongs_matched",
		metric.WithDescription("Liveness pongs matched against an outstanding ping")); err != nil {
		slog.Warn("medic: register pongs_matched counter", "error", err)
	}
	if m.replacements, err = meter.Int64Counter("trustmesh.node.medic.replacements_triggered",
		metric.WithDescription("Session replacements triggered after exhausting retries")); err != nil {
		slog.Warn("medic: register replacements_triggered counter", "error", err)
	}
}

// NewMedic builds a Medic over registry, dispatching pings through bus.
// A zero interval or maxConnect falls back to the spec defaults.
func NewMedic(bus *netbus.Bus, registry *Registry, interval, maxConnect time.Duration) *Medic {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxConnect <= 0 {
		maxConnect = DefaultMaxConnect
	}
	return &Medic{
		bus:           bus,
		registry:      registry,
		interval:      interval,
		maxConnect:    maxConnect,
		collectorAddr: netbus.AddressPingCollector,
		pongs:         make(chan wire.Message, 64),
		results:       make(chan replacementResult, 64),
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start registers the collector worker and launches the medic's loop.
func (m *Medic) Start(ctx context.Context) {
	m.bus.RegisterDropping(ctx, m.collectorAddr, 32, m.collect)
	go m.run(ctx)
}

// Stop halts the medic's loop. The collector worker is torn down
// separately when the owning Bus is stopped.
func (m *Medic) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	<-m.done
}

func (m *Medic) collect(_ context.Context, env netbus.Envelope) {
	var msg wire.Message
	if err := wire.Decode(env.Payload, &msg); err != nil {
		return
	}
	select {
	case m.pongs <- msg:
	default:
		// Mailbox full: drop silently, per spec 4.9's collector contract.
	}
}

func (m *Medic) countPongMatched() {
	if m.pongsMatched != nil {
		m.pongsMatched.Add(context.Background(), 1)
	}
}

func (m *Medic) countReplacementTriggered() {
	if m.replacements != nil {
		m.replacements.Add(context.Background(), 1)
	}
}

func (m *Medic) run(ctx context.Context) {
	defer close(m.done)

	m.runIteration(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.runIteration(ctx)
		case msg := <-m.pongs:
			if m.registry.acceptPong(msg.Key, msg.Ping) {
				m.countPongMatched()
			}
		case res := <-m.results:
			m.handleReplacementResult(ctx, res)
		}
	}
}

func (m *Medic) runIteration(ctx context.Context) {
	if m.obs != nil {
		var done func(error)
		ctx, done = m.obs.TrackOperation(ctx, "session.medic.cycle")
		defer done(nil)
	}

	for _, key := range m.registry.Snapshot() {
		if m.registry.anyDependentActive(key) {
			continue
		}
		sess, ok := m.registry.Get(key)
		if !ok {
			continue
		}
		if sess.mode == Passive {
			continue
		}

		if sess.PingCount() < MaxFailures {
			nonce := rand.Uint64()
			if m.registry.pushPing(key, nonce) {
				if m.pingsSent != nil {
					m.pingsSent.Add(ctx, 1)
				}
				go m.dispatchPing(ctx, key, nonce)
			}
			continue
		}

		if m.registry.anyDependencyDown(key) {
			continue
		}
		target, ok := m.registry.deepestUpReplaceable(key)
		if !ok {
			continue
		}
		m.beginReplacement(ctx, target, "")
	}
}

func (m *Medic) dispatchPing(ctx context.Context, key wire.SessionKey, nonce uint64) {
	addr := m.registry.addressOf(key)
	if addr == "" {
		return
	}
	payload, err := wire.Encode(wire.Message{Key: key, Ping: nonce})
	if err != nil {
		return
	}
	_ = m.bus.Send(ctx, netbus.Envelope{To: addr, ReturnTo: m.collectorAddr, Payload: payload})
}

// beginReplacement marks key Down and spawns its replacement closure
// under the MaxConnect timeout, reporting the outcome back to the
// medic's result channel.
func (m *Medic) beginReplacement(ctx context.Context, key wire.SessionKey, hint netbus.Address) {
	fn := m.registry.replacementOf(key)
	if fn == nil {
		return
	}
	if !m.registry.tryMarkReplacing(key) {
		return
	}
	m.registry.markDown(key)
	m.countReplacementTriggered()

	go func() {
		rctx, cancel := context.WithTimeout(ctx, m.maxConnect)
		defer cancel()
		addr, err := fn(rctx, hint)
		select {
		case m.results <- replacementResult{key: key, address: addr, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (m *Medic) handleReplacementResult(ctx context.Context, res replacementResult) {
	m.registry.clearReplacing(res.key)

	if res.err != nil {
		target, ok := m.registry.deepestUpReplaceable(res.key)
		if !ok {
			return
		}
		m.beginReplacement(ctx, target, "")
		return
	}

	m.registry.markUpWithAddress(res.key, res.address)
	for _, dep := range m.registry.Dependents(res.key) {
		m.beginReplacement(ctx, dep, res.address)
	}
}
