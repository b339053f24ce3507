package capability

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ID is the stable key distinguishing one capability kind from another.
// Identifiers are plain strings, so a store never relies on reflection
// to tell capability kinds apart. One instance per ID per store.
type ID string

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Store is an insertion-ordered, identifier-keyed registry of capability
// instances scoped to a single logical request. It tracks a revision
// counter that changes on every successful write, allowing holders of
// cached references to detect structural changes cheaply.
//
// A store belongs to one request flow, but cooperating goroutines within
// that flow may interleave calls safely: all operations are guarded by
// an internal mutex.
type Store struct {
	mu       sync.Mutex
	items    map[ID]any
	order    []ID
	revision uint64
	disposed bool
}

// NewStore creates an empty capability store.
func NewStore() *Store {
	return &Store{
		items: make(map[ID]any),
	}
}

// Get returns the instance registered under id, if any. It never mutates
// the store.
func (s *Store) Get(id ID) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items[id]
	return v, ok
}

// Contains reports whether an instance is registered under id.
func (s *Store) Contains(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.items[id]
	return ok
}

// Set registers instance under id, replacing any previous instance.
// Every successful call bumps the revision, including overwrites, so
// revision-based staleness checks observe replacements as well as
// inserts.
//
// Returns ErrStoreDisposed if the store has already been disposed and
// ErrNilInstance for a nil instance.
func (s *Store) Set(id ID, instance any) error {
	if instance == nil {
		return fmt.Errorf("%w: %s", ErrNilInstance, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return fmt.Errorf("%w: set %s", ErrStoreDisposed, id)
	}

	if _, ok := s.items[id]; !ok {
		s.order = append(s.order, id)
	}
	s.items[id] = instance
	s.revision++
	return nil
}

// Remove deletes the instance registered under id and reports whether
// anything was removed. Removing an absent identifier is a no-op and
// leaves the revision untouched.
func (s *Store) Remove(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false
	}

	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.revision++
	return true
}

// GetOrInstall returns the instance registered under id, constructing
// and installing the result of factory when absent. The lookup and
// install happen under one critical section, so concurrent first access
// installs exactly one instance.
//
// Returns ErrStoreDisposed if the store has already been disposed.
func (s *Store) GetOrInstall(id ID, factory func() any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return nil, fmt.Errorf("%w: install %s", ErrStoreDisposed, id)
	}

	if v, ok := s.items[id]; ok {
		return v, nil
	}

	v := factory()
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilInstance, id)
	}

	s.items[id] = v
	s.order = append(s.order, id)
	s.revision++
	return v, nil
}

// Revision returns the current revision counter. The counter is
// monotonically non-decreasing for the life of the store and changes
// only on successful Set, Remove, or GetOrInstall installs.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.revision
}

// Len returns the number of registered instances.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

// IDs returns the registered identifiers in insertion order.
func (s *Store) IDs() []ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]ID, len(s.order))
	copy(ids, s.order)
	return ids
}

// Disposed reports whether the store has been disposed.
func (s *Store) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.disposed
}

// Dispose releases the store. Every registered instance implementing
// io.Closer is closed exactly once, in insertion order. A failing close
// never prevents closing the remaining instances; failures are joined
// into the returned error. Dispose is idempotent: calls after the first
// return nil without touching the released instances again.
func (s *Store) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	order := s.order
	items := s.items
	s.order = nil
	s.items = make(map[ID]any)
	s.mu.Unlock()

	var errs []error
	for _, id := range order {
		closer, ok := items[id].(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close capability %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
