package capkit_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/capkit"
)

func TestNewFromHTTP(t *testing.T) {
	t.Parallel()

	t.Run("seeds_required_capabilities", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("POST", "/orders?fast=1", strings.NewReader(`{"sku":"x"}`))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		ctx, err := capkit.NewFromHTTP(w, r)
		require.NoError(t, err)
		defer ctx.Close()

		assert.Equal(t, "POST", ctx.Request().Method())
		assert.Equal(t, "/orders?fast=1", ctx.Request().Target())
		assert.Equal(t, "application/json", ctx.Request().Header().Get("Content-Type"))

		body, err := io.ReadAll(ctx.Request().Body())
		require.NoError(t, err)
		assert.JSONEq(t, `{"sku":"x"}`, string(body))

		assert.NotEqual(t, uuid.Nil, ctx.Connection().ID())
		assert.Equal(t, r.RemoteAddr, ctx.Connection().RemoteAddr())
		assert.False(t, ctx.Connection().Secure())
	})

	t.Run("wires_lifetime_from_request_context", func(t *testing.T) {
		t.Parallel()

		reqCtx, cancel := context.WithCancel(context.Background())
		r := httptest.NewRequest("GET", "/", nil).WithContext(reqCtx)
		w := httptest.NewRecorder()

		ctx, err := capkit.NewFromHTTP(w, r)
		require.NoError(t, err)
		defer ctx.Close()

		assert.NoError(t, ctx.Err())
		cancel()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})

	t.Run("nil_arguments", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("GET", "/", nil)

		_, err := capkit.NewFromHTTP(nil, r)
		require.ErrorIs(t, err, capkit.ErrMissingCapability)

		_, err = capkit.NewFromHTTP(httptest.NewRecorder(), nil)
		require.ErrorIs(t, err, capkit.ErrMissingCapability)
	})
}

func TestHTTPResponse_StatusTracking(t *testing.T) {
	t.Parallel()

	t.Run("write_header_once", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		w := capkit.NewHTTPResponse(rec)

		assert.False(t, w.Written())
		assert.Equal(t, 0, w.Status())

		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusTeapot) // ignored

		assert.True(t, w.Written())
		assert.Equal(t, http.StatusCreated, w.Status())
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("write_defaults_to_ok", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		w := capkit.NewHTTPResponse(rec)

		_, err := w.Write([]byte("hello"))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Status())
		assert.Equal(t, "hello", rec.Body.String())
	})

	t.Run("hijack_unsupported", func(t *testing.T) {
		t.Parallel()

		w := capkit.NewHTTPResponse(httptest.NewRecorder())
		_, _, err := w.Hijack()
		require.Error(t, err)
	})
}

func TestHTTPConnection_IDsAreUnique(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/", nil)
	a := capkit.NewHTTPConnection(r)
	b := capkit.NewHTTPConnection(r)

	assert.NotEqual(t, a.ID(), b.ID())
}
