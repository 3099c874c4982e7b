// Package session implements the trust fabric's liveness-monitored
// dependency graph: a registry of live network sessions (secure
// channels and forwarders) plus the medic loop that pings them, detects
// failure, and drives ordered, cascaded replacement.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/trustmesh/node/pkg/netbus"
	"github.com/trustmesh/node/pkg/wire"
)

// MaxFailures bounds a Session's outstanding-pings list, matching the
// medic's consecutive-miss failure threshold.
const MaxFailures = 3

// Mode decides whether the medic actively pings a session or only
// reacts to an upstream replacement demanding one.
type Mode int

const (
	// Active sessions are pinged directly and replaced on failure.
	Active Mode = iota
	// Passive sessions are only replaced when a dependency's
	// replacement cascades down to them.
	Passive
)

// Status is a session's last-known liveness.
type Status int

const (
	Up Status = iota
	Down
)

// ReplacementFunc produces a fresh address for a session, given the
// previous address as a hint (empty on first failure, the parent's new
// address on a cascaded replacement). It runs under the medic's
// MaxConnect timeout.
type ReplacementFunc func(ctx context.Context, prevAddress netbus.Address) (netbus.Address, error)

// Session is one node in the dependency graph.
type Session struct {
	key         wire.SessionKey
	mode        Mode
	address     netbus.Address
	status      Status
	pings       []uint64
	replacement ReplacementFunc
	// replacing guards against the medic spawning two concurrent
	// replacement invocations for the same key, which can otherwise
	// happen when a dependent's threshold check and the dependency's
	// own threshold check land in the same snapshot iteration.
	replacing bool
}

// Key returns the session's stable identity.
func (s *Session) Key() wire.SessionKey { return s.key }

// Address returns the session's current local address.
func (s *Session) Address() netbus.Address { return s.address }

// Status returns the session's last-known liveness.
func (s *Session) Status() Status { return s.status }

// Mode returns whether the medic pings this session directly.
func (s *Session) Mode() Mode { return s.mode }

// PingCount returns the number of outstanding, unanswered pings.
func (s *Session) PingCount() int { return len(s.pings) }

type node struct {
	session      *Session
	dependencies []wire.SessionKey
	dependents   []wire.SessionKey
}

// Registry is the stable, concurrency-safe dependency graph the medic
// supervises.
type Registry struct {
	mu    sync.RWMutex
	nodes map[wire.SessionKey]*node
	// idx is a monotone counter for the index half of fresh keys; rnd
	// distinguishes otherwise-identical slots across a session's
	// lifetime (spec 4.9's "keys are reused for the lifetime of a
	// session; removal marks the slot reusable").
	idx uint32
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[wire.SessionKey]*node)}
}

// Add registers a new session in mode, reachable at address, whose
// failure recovery is driven by replacement (nil means the session has
// no recovery path of its own — the cascade stops at it).
func (r *Registry) Add(mode Mode, address netbus.Address, replacement ReplacementFunc) wire.SessionKey {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.idx++
	key := wire.SessionKey{Rnd: rand.Uint32(), Idx: r.idx}
	r.nodes[key] = &node{
		session: &Session{
			key:         key,
			mode:        mode,
			address:     address,
			status:      Up,
			replacement: replacement,
		},
	}
	return key
}

// AddDependency records that dependent depends on dependency: the
// medic skips pinging dependency directly while dependent is Active,
// and a dependency's replacement cascades to mark dependent Down and
// re-point it.
func (r *Registry) AddDependency(dependent, dependency wire.SessionKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dn, ok := r.nodes[dependent]
	if !ok {
		return fmt.Errorf("session: unknown dependent key %+v", dependent)
	}
	pn, ok := r.nodes[dependency]
	if !ok {
		return fmt.Errorf("session: unknown dependency key %+v", dependency)
	}
	dn.dependencies = append(dn.dependencies, dependency)
	pn.dependents = append(pn.dependents, dependent)
	return nil
}

// Remove deletes key's node without invalidating other keys. Its index is
// not handed out again: Add always takes the next index. Edges pointing
// at it are left as-is; a removed key is simply absent from future
// lookups and snapshots.
func (r *Registry) Remove(key wire.SessionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, key)
}

// Get returns a copy of key's Session, or false if it is not present.
func (r *Registry) Get(key wire.SessionKey) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key]
	if !ok {
		return Session{}, false
	}
	return *n.session, true
}

// Snapshot returns every registered key in arbitrary order, stable for
// the duration of one medic iteration.
func (r *Registry) Snapshot() []wire.SessionKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]wire.SessionKey, 0, len(r.nodes))
	for k := range r.nodes {
		keys = append(keys, k)
	}
	return keys
}

// Dependencies returns key's direct dependencies.
func (r *Registry) Dependencies(key wire.SessionKey) []wire.SessionKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key]
	if !ok {
		return nil
	}
	return append([]wire.SessionKey(nil), n.dependencies...)
}

// Dependents returns key's direct dependents.
func (r *Registry) Dependents(key wire.SessionKey) []wire.SessionKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key]
	if !ok {
		return nil
	}
	return append([]wire.SessionKey(nil), n.dependents...)
}

// anyDependentActive reports whether any of key's dependents is in
// Active mode — the medic's signal to skip pinging key directly because
// an active dependent will ping it transitively.
func (r *Registry) anyDependentActive(key wire.SessionKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key]
	if !ok {
		return false
	}
	for _, dk := range n.dependents {
		if dn, ok := r.nodes[dk]; ok && dn.session.mode == Active {
			return true
		}
	}
	return false
}

// anyDependencyDown reports whether any of key's direct dependencies is
// currently Down.
func (r *Registry) anyDependencyDown(key wire.SessionKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key]
	if !ok {
		return false
	}
	for _, depKey := range n.dependencies {
		if dep, ok := r.nodes[depKey]; ok && dep.session.status == Down {
			return true
		}
	}
	return false
}

// deepestUpReplaceable walks key's dependency chain (deepest first) and
// returns the last Up dependency that carries a replacement closure. If
// none qualifies, it returns key itself when key has a replacement, or
// false.
func (r *Registry) deepestUpReplaceable(key wire.SessionKey) (wire.SessionKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	visited := make(map[wire.SessionKey]bool)
	var chain []wire.SessionKey
	frontier := []wire.SessionKey{key}
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		chain = append(chain, next)
		if n, ok := r.nodes[next]; ok {
			frontier = append(frontier, n.dependencies...)
		}
	}

	for i := len(chain) - 1; i >= 0; i-- {
		k := chain[i]
		if k == key {
			continue
		}
		n, ok := r.nodes[k]
		if !ok || n.session.status != Up || n.session.replacement == nil {
			continue
		}
		return k, true
	}

	// No qualifying dependency: fall back to the session itself,
	// regardless of its current status — it is always the recovery
	// target of last resort per spec 4.9.
	if n, ok := r.nodes[key]; ok && n.session.replacement != nil {
		return key, true
	}
	return wire.SessionKey{}, false
}

// pushPing records a fresh outstanding ping nonce for key, bounded by
// MaxFailures. Returns false if key is unknown or already at capacity.
func (r *Registry) pushPing(key wire.SessionKey, nonce uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[key]
	if !ok || len(n.session.pings) >= MaxFailures {
		return false
	}
	n.session.pings = append(n.session.pings, nonce)
	return true
}

// acceptPong clears key's entire pings list if nonce matches one of the
// outstanding entries, treating any recent success as proof of
// liveness. Returns whether it matched.
func (r *Registry) acceptPong(key wire.SessionKey, nonce uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[key]
	if !ok {
		return false
	}
	for _, p := range n.session.pings {
		if p == nonce {
			n.session.pings = nil
			return true
		}
	}
	return false
}

// markDown flips key's status to Down.
func (r *Registry) markDown(key wire.SessionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.nodes[key]; ok {
		n.session.status = Down
	}
}

// markUpWithAddress flips key's status to Up, sets its address, and
// clears its pings list.
func (r *Registry) markUpWithAddress(key wire.SessionKey, address netbus.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.nodes[key]; ok {
		n.session.status = Up
		n.session.address = address
		n.session.pings = nil
	}
}

// tryMarkReplacing atomically claims key for an in-flight replacement,
// returning false if key is unknown or already claimed.
func (r *Registry) tryMarkReplacing(key wire.SessionKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[key]
	if !ok || n.session.replacing {
		return false
	}
	n.session.replacing = true
	return true
}

// clearReplacing releases key's in-flight replacement claim.
func (r *Registry) clearReplacing(key wire.SessionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.nodes[key]; ok {
		n.session.replacing = false
	}
}

// replacementOf returns key's replacement closure, or nil.
func (r *Registry) replacementOf(key wire.SessionKey) ReplacementFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key]
	if !ok {
		return nil
	}
	return n.session.replacement
}

// addressOf returns key's current address.
func (r *Registry) addressOf(key wire.SessionKey) netbus.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key]
	if !ok {
		return ""
	}
	return n.session.address
}

// pingCountOf returns the number of key's outstanding pings.
func (r *Registry) pingCountOf(key wire.SessionKey) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key]
	if !ok {
		return 0
	}
	return len(n.session.pings)
}
