package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelWrapping(t *testing.T) {
	t.Run("wrapped not-found is still not-found", func(t *testing.T) {
		err := Wrap(ErrNotFound, "execution abc123")
		assert.True(t, Is(err, ErrNotFound))
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("formatted not-found keeps the message", func(t *testing.T) {
		err := NewNotFoundError("execution not found: %s", "abc123")
		require.Error(t, err)
		assert.True(t, IsNotFoundError(err))
		assert.Contains(t, err.Error(), "abc123")
	})

	t.Run("invalid request is not not-found", func(t *testing.T) {
		err := NewInvalidRequestError("bad limit %d", -1)
		assert.True(t, IsInvalidRequestError(err))
		assert.False(t, IsNotFoundError(err))
	})

	t.Run("nil is neither", func(t *testing.T) {
		assert.False(t, IsNotFoundError(nil))
		assert.False(t, IsInvalidRequestError(nil))
	})
}

func TestWrapPreservesChain(t *testing.T) {
	base := New("connection refused")
	wrapped := Wrapf(base, "runner %s", "selenium")

	assert.True(t, Is(wrapped, base))
	assert.Contains(t, wrapped.Error(), "runner selenium")
	assert.Contains(t, wrapped.Error(), "connection refused")
}
