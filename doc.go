// Package capkit provides a per-request context facade over an
// extensible, lazily-populated capability registry. Capabilities
// (request info, response info, connection info, authentication state,
// session, lifetime, item bag, service resolvers, websocket upgrade)
// are registered independently per request; optional ones materialize on
// first access and any of them can be replaced transparently.
//
// # Creating a Context
//
// Seed the required capabilities directly, or from a live HTTP exchange:
//
//	ctx, err := capkit.NewFromHTTP(w, r,
//		capkit.WithSessionFactory(capkit.MemorySessionFactory()),
//	)
//	if err != nil {
//		return err
//	}
//	defer ctx.Close()
//
// # Named Accessors
//
// Each accessor carries its own defaulting policy. Request, Response, and
// Connection are required and pre-seeded. Principal, Items, and the two
// service resolvers default safely on first access:
//
//	p := ctx.Principal() // anonymous until authentication runs
//	ctx.Items().Set("trace-id", traceID)
//
// The session has no safe default and fails loudly when not configured:
//
//	sess, err := ctx.Session()
//	if errors.Is(err, capkit.ErrSessionNotConfigured) {
//		// session support was never wired up
//	}
//
// # Cancellation
//
// The context implements context.Context by delegating to the lifetime
// capability. Without one, it never cancels, since a missing lifetime is
// not the same as a cancelled request:
//
//	select {
//	case <-ctx.Done():
//	case result := <-work:
//	}
//
//	ctx.Abort() // no-op when no lifetime capability is registered
//
// # Escape Hatches
//
// Capabilities without a named accessor go through the raw surface, and
// the store revision supports cheap staleness checks:
//
//	rev := ctx.Revision()
//	_ = ctx.SetCapability("myapp.tracing", span)
//	// ctx.Revision() != rev now
//
// The registry itself lives in core/capability and can be reused outside
// this facade.
package capkit
