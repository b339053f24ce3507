package capability_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/capkit/core/capability"
)

type closerSpy struct {
	mu     sync.Mutex
	closed int
	err    error
}

func (c *closerSpy) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return c.err
}

func (c *closerSpy) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestStore_GetAbsent(t *testing.T) {
	t.Parallel()

	store := capability.NewStore()

	v, ok := store.Get("auth")
	assert.Nil(t, v)
	assert.False(t, ok)
	assert.False(t, store.Contains("auth"))
	assert.Equal(t, uint64(0), store.Revision())
}

func TestStore_Set(t *testing.T) {
	t.Parallel()

	t.Run("insert_bumps_revision", func(t *testing.T) {
		t.Parallel()

		store := capability.NewStore()
		require.NoError(t, store.Set("items", "bag"))

		v, ok := store.Get("items")
		assert.True(t, ok)
		assert.Equal(t, "bag", v)
		assert.Equal(t, uint64(1), store.Revision())
	})

	t.Run("overwrite_bumps_revision", func(t *testing.T) {
		t.Parallel()

		store := capability.NewStore()
		require.NoError(t, store.Set("items", "first"))
		require.NoError(t, store.Set("items", "second"))

		v, _ := store.Get("items")
		assert.Equal(t, "second", v)
		assert.Equal(t, uint64(2), store.Revision())
		assert.Equal(t, 1, store.Len())
	})

	t.Run("nil_instance_rejected", func(t *testing.T) {
		t.Parallel()

		store := capability.NewStore()
		err := store.Set("items", nil)
		require.ErrorIs(t, err, capability.ErrNilInstance)
		assert.Equal(t, uint64(0), store.Revision())
	})

	t.Run("after_dispose_fails", func(t *testing.T) {
		t.Parallel()

		store := capability.NewStore()
		require.NoError(t, store.Dispose())

		err := store.Set("items", "bag")
		require.ErrorIs(t, err, capability.ErrStoreDisposed)
	})
}

func TestStore_Remove(t *testing.T) {
	t.Parallel()

	t.Run("absent_is_noop", func(t *testing.T) {
		t.Parallel()

		store := capability.NewStore()
		assert.False(t, store.Remove("auth"))
		assert.Equal(t, uint64(0), store.Revision())
	})

	t.Run("present_bumps_revision_once", func(t *testing.T) {
		t.Parallel()

		store := capability.NewStore()
		require.NoError(t, store.Set("auth", "state"))
		rev := store.Revision()

		assert.True(t, store.Remove("auth"))
		assert.Equal(t, rev+1, store.Revision())
		assert.False(t, store.Contains("auth"))

		assert.False(t, store.Remove("auth"))
		assert.Equal(t, rev+1, store.Revision())
	})
}

func TestStore_IDs(t *testing.T) {
	t.Parallel()

	store := capability.NewStore()
	require.NoError(t, store.Set("request", 1))
	require.NoError(t, store.Set("response", 2))
	require.NoError(t, store.Set("connection", 3))
	store.Remove("response")

	assert.Equal(t, []capability.ID{"request", "connection"}, store.IDs())
	assert.Equal(t, 2, store.Len())
}

func TestStore_Dispose(t *testing.T) {
	t.Parallel()

	t.Run("closes_instances_once", func(t *testing.T) {
		t.Parallel()

		store := capability.NewStore()
		spy := &closerSpy{}
		require.NoError(t, store.Set("session", spy))
		require.NoError(t, store.Set("items", "plain value"))

		require.NoError(t, store.Dispose())
		assert.Equal(t, 1, spy.closeCount())
		assert.True(t, store.Disposed())

		// Second dispose is a safe no-op and never re-closes.
		require.NoError(t, store.Dispose())
		assert.Equal(t, 1, spy.closeCount())
	})

	t.Run("one_failure_does_not_stop_cleanup", func(t *testing.T) {
		t.Parallel()

		store := capability.NewStore()
		failing := &closerSpy{err: errors.New("release failed")}
		healthy := &closerSpy{}
		require.NoError(t, store.Set("broken", failing))
		require.NoError(t, store.Set("healthy", healthy))

		err := store.Dispose()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken")
		assert.Equal(t, 1, failing.closeCount())
		assert.Equal(t, 1, healthy.closeCount())
	})

	t.Run("reads_after_dispose_report_absent", func(t *testing.T) {
		t.Parallel()

		store := capability.NewStore()
		require.NoError(t, store.Set("auth", "state"))
		require.NoError(t, store.Dispose())

		_, ok := store.Get("auth")
		assert.False(t, ok)
		assert.False(t, store.Contains("auth"))
		assert.Equal(t, 0, store.Len())
	})
}
