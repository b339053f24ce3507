package capkit_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/capkit"
)

func TestContext_WebSocket(t *testing.T) {
	t.Parallel()

	t.Run("cached_per_context", func(t *testing.T) {
		t.Parallel()

		ctx := newTestContext(t)
		rev := ctx.Revision()

		m := ctx.WebSocket()
		require.NotNil(t, m)
		assert.Same(t, m, ctx.WebSocket())
		assert.Equal(t, rev, ctx.Revision(), "manager is facade-owned, not store-backed")
	})

	t.Run("independent_across_contexts", func(t *testing.T) {
		t.Parallel()

		a := newTestContext(t)
		b := newTestContext(t)
		assert.NotSame(t, a.WebSocket(), b.WebSocket())
	})
}

func TestWebSocketManager_IsUpgradeRequest(t *testing.T) {
	t.Parallel()

	m := capkit.NewWebSocketManager()

	plain := httptest.NewRequest("GET", "/ws", nil)
	assert.False(t, m.IsUpgradeRequest(plain))

	upgrade := httptest.NewRequest("GET", "/ws", nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	assert.True(t, m.IsUpgradeRequest(upgrade))
}

func TestWebSocketManager_Subprotocol(t *testing.T) {
	t.Parallel()

	m := capkit.NewWebSocketManager(capkit.WithWSSubprotocols("graphql-ws", "mqtt"))

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "mqtt, soap")
	assert.Equal(t, "mqtt", m.Subprotocol(r))

	r.Header.Set("Sec-WebSocket-Protocol", "soap")
	assert.Equal(t, "", m.Subprotocol(r))
}

func TestWebSocketManager_Accept(t *testing.T) {
	t.Parallel()

	received := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := capkit.NewFromHTTP(w, r,
			capkit.WithWebSocketOptions(capkit.WithWSAllowAnyOrigin()),
		)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer ctx.Close()

		conn, err := ctx.WebSocket().Accept(ctx.Response().Writer(), r)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(msg)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))

	select {
	case msg := <-received:
		assert.Equal(t, "ping", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the message")
	}
}

func TestLoadWebSocketConfig(t *testing.T) {
	cfg, err := capkit.LoadWebSocketConfig()
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.ReadBufferSize)
	assert.Equal(t, 1024, cfg.WriteBufferSize)
	assert.Equal(t, 10*time.Second, cfg.HandshakeTimeout)
	assert.False(t, cfg.EnableCompression)
}
