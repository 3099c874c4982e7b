// Package policy implements the trust fabric's storage-backed mapping
// from (resource, action) to a boolean expression, and the decision
// points that evaluate it.
package policy

import "sync"

// Resource and Action are opaque, totally-ordered string keys.
type Resource string
type Action string

// Store is the two-level resource -> action -> expression-source mapping.
// Concurrent readers may proceed in parallel; writers are exclusive,
// backed by a single read-write lock around a nested Go map (so entries
// have no defined iteration order).
type Store struct {
	mu      sync.RWMutex
	entries map[Resource]map[Action]string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[Resource]map[Action]string)}
}

// Set records the expression source for (resource, action), overwriting
// any existing entry.
func (s *Store) Set(resource Resource, action Action, expression string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions, ok := s.entries[resource]
	if !ok {
		actions = make(map[Action]string)
		s.entries[resource] = actions
	}
	actions[action] = expression
}

// Get returns the expression source for (resource, action) and whether it
// was present. A missing entry is the caller's signal to deny by default;
// the store never decides on the caller's behalf.
func (s *Store) Get(resource Resource, action Action) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	actions, ok := s.entries[resource]
	if !ok {
		return "", false
	}
	expression, ok := actions[action]
	return expression, ok
}

// Delete removes every action entry for resource.
func (s *Store) Delete(resource Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, resource)
}

// LoadBundle installs every entry from a validated bundle, overwriting
// existing entries for the same (resource, action).
func (s *Store) LoadBundle(entries []BundleEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		actions, ok := s.entries[Resource(e.Resource)]
		if !ok {
			actions = make(map[Action]string)
			s.entries[Resource(e.Resource)] = actions
		}
		actions[Action(e.Action)] = e.Expression
	}
}

// BundleEntry mirrors config.BundleEntry without importing pkg/config, so
// callers can feed LoadBundle from any validated source.
type BundleEntry struct {
	Resource   string
	Action     string
	Expression string
}
