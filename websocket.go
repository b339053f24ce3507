package capkit

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/capkit/core/config"
)

// WebSocketConfig carries upgrader defaults, loadable from the
// environment through core/config.
type WebSocketConfig struct {
	ReadBufferSize    int           `env:"CAPKIT_WS_READ_BUFFER_SIZE" envDefault:"1024"`
	WriteBufferSize   int           `env:"CAPKIT_WS_WRITE_BUFFER_SIZE" envDefault:"1024"`
	HandshakeTimeout  time.Duration `env:"CAPKIT_WS_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	EnableCompression bool          `env:"CAPKIT_WS_ENABLE_COMPRESSION" envDefault:"false"`
}

// LoadWebSocketConfig loads WebSocketConfig from the environment.
func LoadWebSocketConfig() (WebSocketConfig, error) {
	var cfg WebSocketConfig
	if err := config.Load(&cfg); err != nil {
		return WebSocketConfig{}, err
	}
	return cfg, nil
}

// WebSocketManager handles the websocket upgrade for a request. The
// facade creates it lazily on first access and caches it for the rest of
// the request; it is not a store-backed capability.
type WebSocketManager struct {
	upgrader       *websocket.Upgrader
	responseHeader http.Header
}

// WebSocketOption configures a WebSocketManager during creation.
type WebSocketOption func(*WebSocketManager)

// WithWSConfig applies buffer sizes, handshake timeout, and compression
// from cfg.
func WithWSConfig(cfg WebSocketConfig) WebSocketOption {
	return func(m *WebSocketManager) {
		m.upgrader.ReadBufferSize = cfg.ReadBufferSize
		m.upgrader.WriteBufferSize = cfg.WriteBufferSize
		m.upgrader.HandshakeTimeout = cfg.HandshakeTimeout
		m.upgrader.EnableCompression = cfg.EnableCompression
	}
}

// WithWSReadBuffer sets the read buffer size.
func WithWSReadBuffer(size int) WebSocketOption {
	return func(m *WebSocketManager) {
		m.upgrader.ReadBufferSize = size
	}
}

// WithWSWriteBuffer sets the write buffer size.
func WithWSWriteBuffer(size int) WebSocketOption {
	return func(m *WebSocketManager) {
		m.upgrader.WriteBufferSize = size
	}
}

// WithWSHandshakeTimeout sets the handshake timeout.
func WithWSHandshakeTimeout(timeout time.Duration) WebSocketOption {
	return func(m *WebSocketManager) {
		m.upgrader.HandshakeTimeout = timeout
	}
}

// WithWSOriginCheck sets a custom origin check.
func WithWSOriginCheck(fn func(r *http.Request) bool) WebSocketOption {
	return func(m *WebSocketManager) {
		m.upgrader.CheckOrigin = fn
	}
}

// WithWSAllowAnyOrigin disables the origin check.
func WithWSAllowAnyOrigin() WebSocketOption {
	return func(m *WebSocketManager) {
		m.upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	}
}

// WithWSSubprotocols sets the supported subprotocols in preference order.
func WithWSSubprotocols(protocols ...string) WebSocketOption {
	return func(m *WebSocketManager) {
		m.upgrader.Subprotocols = protocols
	}
}

// WithWSUpgradeHeaders sets custom headers for the upgrade response.
func WithWSUpgradeHeaders(header http.Header) WebSocketOption {
	return func(m *WebSocketManager) {
		m.responseHeader = header
	}
}

// NewWebSocketManager creates a websocket manager with the given options.
func NewWebSocketManager(opts ...WebSocketOption) *WebSocketManager {
	m := &WebSocketManager{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsUpgradeRequest reports whether r asks for a websocket upgrade.
func (m *WebSocketManager) IsUpgradeRequest(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}

// Accept upgrades the connection to a websocket. The caller owns the
// returned connection and must close it.
func (m *WebSocketManager) Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return m.upgrader.Upgrade(w, r, m.responseHeader)
}

// Subprotocol returns the negotiated subprotocol for r, or empty if none
// of the configured subprotocols match.
func (m *WebSocketManager) Subprotocol(r *http.Request) string {
	clientProtocols := websocket.Subprotocols(r)
	for _, server := range m.upgrader.Subprotocols {
		for _, client := range clientProtocols {
			if client == server {
				return server
			}
		}
	}
	return ""
}
