package capkit

import "errors"

var (
	// ErrMissingCapability is returned when a context is constructed
	// without one of the required capabilities (request, response,
	// connection). Absence at runtime is a construction-time bug, so the
	// facade never tries to recover from it.
	ErrMissingCapability = errors.New("required capability missing")
	// ErrSessionNotConfigured is returned when the session collection is
	// requested but no session capability was registered.
	ErrSessionNotConfigured = errors.New("session capability not configured")
	// ErrNoSessionFactory is returned when the session capability exists
	// but carries no factory to create a session with.
	ErrNoSessionFactory = errors.New("session capability has no factory")
	// ErrCreateSession is returned when the session factory fails.
	ErrCreateSession = errors.New("failed to create session")
)
