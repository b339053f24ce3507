package capkit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/capkit/core/capability"
)

// Shared lazy refs for the optional store-backed capabilities. Refs are
// stateless, so one value serves every context instance.
var (
	authRef     = capability.NewRef(CapabilityAuth, NewAuthState)
	itemsRef    = capability.NewRef(CapabilityItems, NewItems)
	servicesRef = capability.NewRef(CapabilityServices, NewServices)
)

// Context is the per-request facade over one capability store. It exposes
// named accessors for the well-known capabilities, raw escape hatches for
// everything else, and owns disposal of the store.
//
// A context belongs to the flow processing one inbound request.
// Cooperating goroutines within that flow may call it concurrently; it is
// not meant to be shared between independent request flows.
//
// Context also implements context.Context by delegating to the lifetime
// capability, falling back to a never-cancelled background context when
// no lifetime is registered.
type Context struct {
	caps *capability.Store
	log  *slog.Logger

	wsOnce sync.Once
	ws     *WebSocketManager
	wsOpts []WebSocketOption
}

// Option configures a Context during creation.
type Option func(*Context) error

// WithLogger sets the logger used for disposal diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Context) error {
		if log != nil {
			c.log = log
		}
		return nil
	}
}

// WithLifetime registers a lifetime capability derived from parent.
// Abort cancels it; cancelling parent cancels it too.
func WithLifetime(parent context.Context) Option {
	return func(c *Context) error {
		return c.caps.Set(CapabilityLifetime, NewLifetime(parent))
	}
}

// WithSessionFactory registers a session capability backed by factory.
func WithSessionFactory(factory SessionFactory) Option {
	return func(c *Context) error {
		return c.caps.Set(CapabilitySession, NewSessionState(factory))
	}
}

// WithCapability registers an arbitrary capability instance under id.
func WithCapability(id capability.ID, instance any) Option {
	return func(c *Context) error {
		return c.caps.Set(id, instance)
	}
}

// WithWebSocketOptions configures the websocket manager the context
// creates on first WebSocket access.
func WithWebSocketOptions(opts ...WebSocketOption) Option {
	return func(c *Context) error {
		c.wsOpts = append(c.wsOpts, opts...)
		return nil
	}
}

// New creates a context over a fresh capability store, pre-seeded with
// the three required capabilities. A nil request, response, or connection
// is a construction-time bug and fails with ErrMissingCapability.
func New(req RequestInfo, resp ResponseInfo, conn ConnectionInfo, opts ...Option) (*Context, error) {
	switch {
	case req == nil:
		return nil, fmt.Errorf("%w: request", ErrMissingCapability)
	case resp == nil:
		return nil, fmt.Errorf("%w: response", ErrMissingCapability)
	case conn == nil:
		return nil, fmt.Errorf("%w: connection", ErrMissingCapability)
	}

	c := &Context{
		caps: capability.NewStore(),
		log:  slog.Default(),
	}

	if err := c.caps.Set(CapabilityRequest, req); err != nil {
		return nil, err
	}
	if err := c.caps.Set(CapabilityResponse, resp); err != nil {
		return nil, err
	}
	if err := c.caps.Set(CapabilityConnection, conn); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Request returns the request capability. It is pre-seeded at
// construction; a missing instance means the store was corrupted through
// the raw surface, which is a programmer bug.
func (c *Context) Request() RequestInfo {
	return mustCapability[RequestInfo](c.caps, CapabilityRequest)
}

// Response returns the response capability.
func (c *Context) Response() ResponseInfo {
	return mustCapability[ResponseInfo](c.caps, CapabilityResponse)
}

// Connection returns the connection capability.
func (c *Context) Connection() ConnectionInfo {
	return mustCapability[ConnectionInfo](c.caps, CapabilityConnection)
}

func mustCapability[T any](s *capability.Store, id capability.ID) T {
	v, ok := s.Get(id)
	if !ok {
		panic(fmt.Sprintf("capkit: required capability %s missing from store", id))
	}
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("capkit: required capability %s holds %T", id, v))
	}
	return t
}

// Principal returns the current principal, installing an anonymous one
// into the authentication capability on first access. Never returns nil.
func (c *Context) Principal() *Principal {
	auth, err := authRef.FetchOrCreate(c.caps)
	if err != nil {
		// Defaulting never fails: a disposed or misused store still
		// yields a usable anonymous principal, just not a cached one.
		return AnonymousPrincipal()
	}
	if p := auth.Principal(); p != nil {
		return p
	}
	p := AnonymousPrincipal()
	auth.SetPrincipal(p)
	return p
}

// SetPrincipal replaces the current principal. The write routes through
// the authentication capability's mutable field, creating the capability
// if needed.
func (c *Context) SetPrincipal(p *Principal) error {
	auth, err := authRef.FetchOrCreate(c.caps)
	if err != nil {
		return err
	}
	auth.SetPrincipal(p)
	return nil
}

// Items returns the per-request item bag, creating an empty one on first
// access. Never returns nil.
func (c *Context) Items() Items {
	bag, err := itemsRef.FetchOrCreate(c.caps)
	if err != nil {
		// Detached bag: writes are lost, but the accessor never fails.
		return NewItems()
	}
	return bag
}

// Services returns the application-scoped service resolver, defaulting to
// a resolver that resolves nothing.
func (c *Context) Services() Resolver {
	svc, err := servicesRef.FetchOrCreate(c.caps)
	if err != nil {
		return emptyResolver{}
	}
	return svc.Application()
}

// RequestServices returns the request-scoped service resolver,
// independent of the application-scoped one.
func (c *Context) RequestServices() Resolver {
	svc, err := servicesRef.FetchOrCreate(c.caps)
	if err != nil {
		return emptyResolver{}
	}
	return svc.Request()
}

func (c *Context) lifetime() (Lifetime, bool) {
	v, ok := c.caps.Get(CapabilityLifetime)
	if !ok {
		return nil, false
	}
	lt, ok := v.(Lifetime)
	return lt, ok
}

// Context returns the cancellation signal for the request. When no
// lifetime capability is registered it returns a never-cancelled context:
// "feature not wired up" is not the same as "request cancelled".
func (c *Context) Context() context.Context {
	if lt, ok := c.lifetime(); ok {
		return lt.Context()
	}
	return context.Background()
}

// Deadline implements context.Context.
func (c *Context) Deadline() (time.Time, bool) {
	return c.Context().Deadline()
}

// Done implements context.Context.
func (c *Context) Done() <-chan struct{} {
	return c.Context().Done()
}

// Err implements context.Context.
func (c *Context) Err() error {
	return c.Context().Err()
}

// Value implements context.Context.
func (c *Context) Value(key any) any {
	return c.Context().Value(key)
}

// Abort triggers request cancellation through the lifetime capability.
// Without a lifetime it is a no-op, never a failure.
func (c *Context) Abort() {
	if lt, ok := c.lifetime(); ok {
		lt.Abort()
	}
}

// Session returns a collection view over the request's session, creating
// the session through the registered factory on first access. The same
// underlying session backs every view for the life of the context.
//
// There is no safe default here: proceeding without a configured session
// would corrupt application-level assumptions, so the error path is
// explicit. Returns ErrSessionNotConfigured when no session capability is
// registered and ErrNoSessionFactory when the capability has no factory.
func (c *Context) Session() (*SessionCollection, error) {
	v, ok := c.caps.Get(CapabilitySession)
	if !ok {
		return nil, ErrSessionNotConfigured
	}
	state, ok := v.(SessionState)
	if !ok {
		return nil, fmt.Errorf("%w: capability holds %T", ErrSessionNotConfigured, v)
	}

	sess, err := state.GetOrCreate(c.Context())
	if err != nil {
		return nil, err
	}
	return &SessionCollection{session: sess}, nil
}

// WebSocket returns the websocket manager for this request, creating it
// once on first access. The manager is owned by the context itself, not
// the capability store.
func (c *Context) WebSocket() *WebSocketManager {
	c.wsOnce.Do(func() {
		c.ws = NewWebSocketManager(c.wsOpts...)
	})
	return c.ws
}

// Capability returns the raw instance registered under id. Escape hatch
// for capabilities without a named accessor.
func (c *Context) Capability(id capability.ID) (any, bool) {
	return c.caps.Get(id)
}

// SetCapability registers instance under id, replacing any previous one.
func (c *Context) SetCapability(id capability.ID, instance any) error {
	return c.caps.Set(id, instance)
}

// RemoveCapability removes the instance registered under id and reports
// whether anything was removed.
func (c *Context) RemoveCapability(id capability.ID) bool {
	return c.caps.Remove(id)
}

// Revision returns the store's revision counter for external
// change-detection.
func (c *Context) Revision() uint64 {
	return c.caps.Revision()
}

// Close disposes the underlying capability store. Release failures of
// individual capabilities are aggregated and logged; cleanup always runs
// to completion. Close is idempotent.
func (c *Context) Close() error {
	err := c.caps.Dispose()
	if err != nil {
		c.log.Error("capability disposal failed", slog.Any("error", err))
	}
	return err
}
