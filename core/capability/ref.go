package capability

import "fmt"

// Ref is a stateless accessor bound to one capability identifier and a
// default factory. It holds no per-store state, so a single ref value is
// safe to share across many stores and goroutines; the store passed to
// each call carries all mutable state.
//
// The ref separates "what is the default for this capability" (a static,
// reusable rule) from "is this capability currently present in this
// particular store" (per-request state), so defaulting logic lives in
// one place instead of every accessor.
type Ref[T any] struct {
	id  ID
	def func() T
}

// NewRef creates a ref bound to id with the given default factory.
// The factory must not be nil and must not return a nil interface value.
func NewRef[T any](id ID, def func() T) Ref[T] {
	if def == nil {
		panic("capability: NewRef requires a default factory")
	}
	return Ref[T]{id: id, def: def}
}

// ID returns the identifier the ref is bound to.
func (r Ref[T]) ID() ID {
	return r.id
}

// Fetch returns the instance currently registered under the ref's
// identifier. It is a pure lookup: nothing is installed on a miss.
// An instance of the wrong type reads as absent.
func (r Ref[T]) Fetch(s *Store) (T, bool) {
	var zero T

	v, ok := s.Get(r.id)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// FetchOrCreate returns the instance registered under the ref's
// identifier, constructing and installing the default on first access.
// The check-then-install runs atomically at the store level, so repeated
// or concurrent calls observe exactly one installed default.
//
// Returns ErrStoreDisposed when the store has been disposed and
// ErrUnexpectedType when a different capability type was registered
// under the same identifier through the raw store surface.
func (r Ref[T]) FetchOrCreate(s *Store) (T, error) {
	var zero T

	v, err := s.GetOrInstall(r.id, func() any { return r.def() })
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T", ErrUnexpectedType, r.id, v)
	}
	return t, nil
}
