package capkit

import (
	"context"
	"io"
	"net/http"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/capkit/core/capability"
)

// Well-known capability identifiers. Named facade accessors resolve
// against these; anything else goes through the raw store surface.
const (
	CapabilityRequest    capability.ID = "capkit.request"
	CapabilityResponse   capability.ID = "capkit.response"
	CapabilityConnection capability.ID = "capkit.connection"
	CapabilityAuth       capability.ID = "capkit.auth"
	CapabilityItems      capability.ID = "capkit.items"
	CapabilityServices   capability.ID = "capkit.services"
	CapabilityLifetime   capability.ID = "capkit.lifetime"
	CapabilitySession    capability.ID = "capkit.session"
)

// RequestInfo describes the inbound request. Implementations are supplied
// by the transport layer; the facade only reads through this surface.
type RequestInfo interface {
	Method() string
	Target() string
	Header() http.Header
	Body() io.Reader
}

// ResponseInfo describes the outbound response.
type ResponseInfo interface {
	Header() http.Header
	Status() int
	Written() bool
	Writer() http.ResponseWriter
}

// ConnectionInfo describes the underlying connection the request arrived on.
type ConnectionInfo interface {
	ID() uuid.UUID
	RemoteAddr() string
	LocalAddr() string
	Secure() bool
}

// AuthState holds the authenticated principal for the current request.
// The principal field is mutable: middleware replaces it after running
// an authentication handshake.
type AuthState interface {
	Principal() *Principal
	SetPrincipal(*Principal)
}

// NewAuthState creates an empty authentication state with no principal.
func NewAuthState() AuthState {
	return &authState{}
}

type authState struct {
	mu        sync.Mutex
	principal *Principal
}

func (a *authState) Principal() *Principal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.principal
}

func (a *authState) SetPrincipal(p *Principal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.principal = p
}

// Items is a mutable bag of arbitrary per-request values. It is safe for
// cooperating goroutines of one request flow to read and write
// concurrently.
type Items interface {
	Get(key any) (any, bool)
	Set(key, value any)
	Delete(key any)
	Len() int
	Keys() []any
}

// NewItems creates an empty item bag.
func NewItems() Items {
	return &itemBag{values: make(map[any]any)}
}

type itemBag struct {
	mu     sync.RWMutex
	values map[any]any
}

func (b *itemBag) Get(key any) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

func (b *itemBag) Set(key, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
}

func (b *itemBag) Delete(key any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
}

func (b *itemBag) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}

func (b *itemBag) Keys() []any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]any, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	return keys
}

// Resolver resolves named services. Application code defines the naming
// scheme; the facade only forwards lookups.
type Resolver interface {
	Resolve(name string) (any, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (any, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(name string) (any, bool) {
	return f(name)
}

// emptyResolver resolves nothing. Used as the safe default so lookups
// against an unconfigured resolver degrade to "not found" instead of
// failing.
type emptyResolver struct{}

func (emptyResolver) Resolve(string) (any, bool) {
	return nil, false
}

// Services holds two independent service resolvers: one scoped to the
// application and one scoped to the current request.
type Services interface {
	Application() Resolver
	SetApplication(Resolver)
	Request() Resolver
	SetRequest(Resolver)
}

// NewServices creates a Services capability whose resolvers resolve
// nothing until replaced.
func NewServices() Services {
	return &serviceState{
		application: emptyResolver{},
		request:     emptyResolver{},
	}
}

type serviceState struct {
	mu          sync.Mutex
	application Resolver
	request     Resolver
}

func (s *serviceState) Application() Resolver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.application
}

func (s *serviceState) SetApplication(r Resolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == nil {
		r = emptyResolver{}
	}
	s.application = r
}

func (s *serviceState) Request() Resolver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

func (s *serviceState) SetRequest(r Resolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == nil {
		r = emptyResolver{}
	}
	s.request = r
}

// Lifetime controls the request lifetime: it exposes the cancellation
// signal and the abort trigger. The facade never drives cancellation
// itself; whoever owns the request lifetime cancels the parent context
// or calls Abort.
type Lifetime interface {
	Context() context.Context
	Abort()
}

// NewLifetime creates a Lifetime derived from parent. Abort cancels the
// derived context; cancelling parent cancels it too.
func NewLifetime(parent context.Context) Lifetime {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &lifetime{ctx: ctx, cancel: cancel}
}

type lifetime struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (l *lifetime) Context() context.Context {
	return l.ctx
}

func (l *lifetime) Abort() {
	l.cancel()
}

// Close releases the derived context when the store is disposed.
func (l *lifetime) Close() error {
	l.cancel()
	return nil
}

// Principal identifies the caller of the current request. The zero value
// is the anonymous principal.
type Principal struct {
	// Subject is the stable caller identity. uuid.Nil means anonymous.
	Subject uuid.UUID
	Name    string
	Roles   []string
	Claims  map[string]any
}

// AnonymousPrincipal returns a fresh anonymous principal.
func AnonymousPrincipal() *Principal {
	return &Principal{}
}

// IsAuthenticated reports whether the principal identifies a real caller.
func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.Subject != uuid.Nil
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}
