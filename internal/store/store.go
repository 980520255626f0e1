// Package store implements the variable store: a map from store key to
// current value plus an optional per-key ring buffer of history, used by
// the expression evaluator for lag lookups.
package store

import "github.com/flowlace/cyclesim/internal/ring"

// state holds a single key's current value and, when the key was configured
// with a positive capacity, its history.
type state struct {
	current float64
	hasCur  bool
	history *ring.Buffer // nil when the key has no configured capacity
}

// Store is the engine-wide mapping from store key (a plain variable name or
// "instance.attribute") to its current value and history. A Store must be
// created with New; the zero value is not usable.
type Store struct {
	states     map[string]*state
	capacities map[string]int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		states:     make(map[string]*state),
		capacities: make(map[string]int),
	}
}

// ConfigureLag records the history capacity required for name. It is
// idempotent and must be called before the first Set for that name to take
// effect on the backing buffer; calling it again with a different capacity
// after state already exists does not retroactively resize the buffer
// (the loader computes capacities once, up front, before any cycle runs).
func (s *Store) ConfigureLag(name string, capacity int) {
	if capacity < 0 {
		panic("store: negative capacity")
	}
	s.capacities[name] = capacity
}

// Set stores v as the current value for name, creating its state on first
// use and honoring any previously configured capacity. If name has a
// positive configured capacity, v is also pushed into its history.
func (s *Store) Set(name string, v float64) {
	st, ok := s.states[name]
	if !ok {
		st = &state{}
		if cap := s.capacities[name]; cap > 0 {
			st.history = ring.New(cap)
		}
		s.states[name] = st
	}
	st.current = v
	st.hasCur = true
	if st.history != nil {
		st.history.Push(v)
	}
}

// Get returns the current value for name, or def if name has never been set.
// Reading an absent name never allocates or mutates the store.
func (s *Store) Get(name string, def float64) float64 {
	st, ok := s.states[name]
	if !ok || !st.hasCur {
		return def
	}
	return st.current
}

// Has reports whether name has ever been set.
func (s *Store) Has(name string) bool {
	st, ok := s.states[name]
	return ok && st.hasCur
}

// GetWithLag returns the value stored k cycles before the most recent
// update to name: k=0 is the current value. If name has a configured
// history, the lookup is delegated to its ring buffer (which itself falls
// back to def beyond what has been recorded). If name has no history but
// does have a current value, k=0 returns that value and any k>0 returns
// def (there is nothing kept to look further back). If name has never been
// set at all, def is always returned.
func (s *Store) GetWithLag(name string, k int, def float64) float64 {
	if k < 0 {
		panic("store: negative lag")
	}
	st, ok := s.states[name]
	if !ok || !st.hasCur {
		return def
	}
	if st.history != nil {
		return st.history.GetByLag(k, def)
	}
	if k == 0 {
		return st.current
	}
	return def
}

// Keys returns every store key that has been set at least once, in
// unspecified order. Used by the engine to assemble the per-cycle snapshot.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.states))
	for k, st := range s.states {
		if st.hasCur {
			keys = append(keys, k)
		}
	}
	return keys
}
