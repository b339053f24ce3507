package capkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds per-request key/value state identified by a stable ID.
// How a session is produced (cookie lookup, token exchange, fresh start)
// is the factory's concern; the facade only caches and exposes it.
type Session struct {
	id        uuid.UUID
	createdAt time.Time

	mu        sync.RWMutex
	values    map[string]any
	updatedAt time.Time
	modified  bool
}

// NewSession creates an empty session with a generated ID.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		id:        uuid.New(),
		createdAt: now,
		updatedAt: now,
		values:    make(map[string]any),
	}
}

// ID returns the stable session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// UpdatedAt returns the time of the last mutation.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and marks the session as modified.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.touch()
}

// Delete removes key and marks the session as modified if the key existed.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.touch()
}

// Keys returns the stored keys in unspecified order.
func (s *Session) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of stored values.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// IsModified reports whether the session changed since creation or the
// last ClearModified call. Persistence layers use this to skip writes.
func (s *Session) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// ClearModified resets the modified flag after a successful save.
func (s *Session) ClearModified() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modified = false
}

// touch must be called with the write lock held.
func (s *Session) touch() {
	s.updatedAt = time.Now()
	s.modified = true
}

// SessionFactory produces the session for a request on first access.
type SessionFactory interface {
	New(ctx context.Context) (*Session, error)
}

// SessionFactoryFunc adapts a function to the SessionFactory interface.
type SessionFactoryFunc func(ctx context.Context) (*Session, error)

// New implements SessionFactory.
func (f SessionFactoryFunc) New(ctx context.Context) (*Session, error) {
	return f(ctx)
}

// MemorySessionFactory returns a factory that creates fresh in-memory
// sessions. Suitable for tests and single-process setups.
func MemorySessionFactory() SessionFactory {
	return SessionFactoryFunc(func(ctx context.Context) (*Session, error) {
		return NewSession(), nil
	})
}

// SessionState is the session capability: it carries the factory used to
// create the session on first access and caches the created session for
// the rest of the request.
type SessionState interface {
	Factory() SessionFactory
	Session() *Session
	SetSession(*Session)

	// GetOrCreate returns the cached session, creating it through the
	// factory on first access. The lookup and install are one atomic
	// unit, so concurrent first access yields exactly one session.
	GetOrCreate(ctx context.Context) (*Session, error)
}

// NewSessionState creates a session capability backed by factory.
// A nil factory is allowed; requesting the session collection then fails
// with ErrNoSessionFactory.
func NewSessionState(factory SessionFactory) SessionState {
	return &sessionState{factory: factory}
}

type sessionState struct {
	factory SessionFactory

	mu      sync.Mutex
	session *Session
}

func (s *sessionState) Factory() SessionFactory {
	return s.factory
}

func (s *sessionState) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *sessionState) SetSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
}

func (s *sessionState) GetOrCreate(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return s.session, nil
	}
	if s.factory == nil {
		return nil, ErrNoSessionFactory
	}

	sess, err := s.factory.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateSession, err)
	}
	s.session = sess
	return sess, nil
}

// SessionCollection is the view the facade hands out over the request's
// session. Each access produces a fresh view over the same underlying
// session, so values written through one view are visible through all.
type SessionCollection struct {
	session *Session
}

// ID returns the underlying session identifier.
func (c *SessionCollection) ID() uuid.UUID {
	return c.session.ID()
}

// Get returns the value stored under key.
func (c *SessionCollection) Get(key string) (any, bool) {
	return c.session.Get(key)
}

// Set stores value under key.
func (c *SessionCollection) Set(key string, value any) {
	c.session.Set(key, value)
}

// Delete removes key.
func (c *SessionCollection) Delete(key string) {
	c.session.Delete(key)
}

// Keys returns the stored keys in unspecified order.
func (c *SessionCollection) Keys() []string {
	return c.session.Keys()
}

// Len returns the number of stored values.
func (c *SessionCollection) Len() int {
	return c.session.Len()
}

// IsModified reports whether the underlying session has unsaved changes.
func (c *SessionCollection) IsModified() bool {
	return c.session.IsModified()
}
