package capkit

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/google/uuid"
)

// HTTPRequest adapts *http.Request to the RequestInfo capability.
type HTTPRequest struct {
	r *http.Request
}

// NewHTTPRequest wraps r as a RequestInfo capability.
func NewHTTPRequest(r *http.Request) *HTTPRequest {
	return &HTTPRequest{r: r}
}

// Method returns the HTTP method.
func (q *HTTPRequest) Method() string {
	return q.r.Method
}

// Target returns the request target (path plus query).
func (q *HTTPRequest) Target() string {
	return q.r.URL.RequestURI()
}

// Header returns the request headers.
func (q *HTTPRequest) Header() http.Header {
	return q.r.Header
}

// Body returns the request body reader.
func (q *HTTPRequest) Body() io.Reader {
	return q.r.Body
}

// Unwrap returns the underlying *http.Request.
func (q *HTTPRequest) Unwrap() *http.Request {
	return q.r
}

// HTTPResponse adapts http.ResponseWriter to the ResponseInfo capability.
// It tracks the status code and whether anything was written, and guards
// against duplicate WriteHeader calls.
type HTTPResponse struct {
	http.ResponseWriter
	status  int
	written bool
}

// NewHTTPResponse wraps w as a ResponseInfo capability.
func NewHTTPResponse(w http.ResponseWriter) *HTTPResponse {
	return &HTTPResponse{ResponseWriter: w}
}

// WriteHeader records the status code; repeated calls are ignored.
func (w *HTTPResponse) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
		w.ResponseWriter.WriteHeader(status)
	}
}

// Write writes the body, defaulting the status to 200 on first write.
func (w *HTTPResponse) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Status returns the recorded status code, or 0 before the first write.
func (w *HTTPResponse) Status() int {
	return w.status
}

// Written reports whether WriteHeader has been called.
func (w *HTTPResponse) Written() bool {
	return w.written
}

// Writer returns the response writer to hand to upgrade-style consumers
// such as the websocket manager.
func (w *HTTPResponse) Writer() http.ResponseWriter {
	return w
}

// Flush implements http.Flusher if the underlying writer supports it.
func (w *HTTPResponse) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker if the underlying writer supports it.
// Required for websocket upgrades.
func (w *HTTPResponse) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer %T does not support hijacking", w.ResponseWriter)
	}
	return h.Hijack()
}

// HTTPConnection describes the connection an HTTP request arrived on.
type HTTPConnection struct {
	id         uuid.UUID
	remoteAddr string
	localAddr  string
	secure     bool
}

// NewHTTPConnection builds a ConnectionInfo capability from r. The local
// address comes from the server via http.LocalAddrContextKey when
// available.
func NewHTTPConnection(r *http.Request) *HTTPConnection {
	conn := &HTTPConnection{
		id:         uuid.New(),
		remoteAddr: r.RemoteAddr,
		secure:     r.TLS != nil,
	}
	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		conn.localAddr = addr.String()
	}
	return conn
}

// ID returns the connection identifier.
func (c *HTTPConnection) ID() uuid.UUID {
	return c.id
}

// RemoteAddr returns the peer address.
func (c *HTTPConnection) RemoteAddr() string {
	return c.remoteAddr
}

// LocalAddr returns the local server address, or empty when unknown.
func (c *HTTPConnection) LocalAddr() string {
	return c.localAddr
}

// Secure reports whether the request arrived over TLS.
func (c *HTTPConnection) Secure() bool {
	return c.secure
}

// NewFromHTTP creates a context seeded from a live request/response pair:
// the three required capabilities come from w and r, and the lifetime
// capability is derived from the request context. Additional options run
// after the defaults, so they can override any of it.
func NewFromHTTP(w http.ResponseWriter, r *http.Request, opts ...Option) (*Context, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: response", ErrMissingCapability)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: request", ErrMissingCapability)
	}

	opts = append([]Option{WithLifetime(r.Context())}, opts...)
	return New(NewHTTPRequest(r), NewHTTPResponse(w), NewHTTPConnection(r), opts...)
}
