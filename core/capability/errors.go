package capability

import "errors"

var (
	// ErrStoreDisposed is returned when a mutation is attempted on a store
	// that has already been disposed.
	ErrStoreDisposed = errors.New("capability store already disposed")
	// ErrNilInstance is returned when a nil instance is registered.
	// Use Remove to clear an identifier instead.
	ErrNilInstance = errors.New("capability instance must not be nil")
	// ErrUnexpectedType is returned when the instance registered under a
	// ref's identifier does not have the ref's type.
	ErrUnexpectedType = errors.New("capability has unexpected type")
)
