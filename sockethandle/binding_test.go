package sockethandle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/socket-utils/logger"
)

func newTestBinding() (*Binding, *fakeDispatcherBinding) {
	inner := &fakeDispatcherBinding{log: &callLog{}}
	return newBinding(inner, logger.Nop()), inner
}

func TestBinding_Begin(t *testing.T) {
	b, _ := newTestBinding()

	op1, err := b.Begin(OpRead)
	require.NoError(t, err)
	op2, err := b.Begin(OpWrite)
	require.NoError(t, err)

	assert.Equal(t, OpRead, op1.Name())
	assert.Equal(t, OpWrite, op2.Name())
	assert.NotEqual(t, op1.ID(), op2.ID())
	assert.Equal(t, 2, b.PendingCount())
}

func TestOperation_Complete(t *testing.T) {
	b, _ := newTestBinding()
	op, err := b.Begin(OpRead)
	require.NoError(t, err)

	t.Run("not finalized before completion", func(t *testing.T) {
		assert.False(t, op.Done())
		_, done, _ := op.Outcome()
		assert.False(t, done)
	})

	t.Run("first completion wins", func(t *testing.T) {
		assert.True(t, op.Complete(42, nil))
		assert.True(t, op.Done())
		assert.Equal(t, 0, b.PendingCount())

		result, done, opErr := op.Outcome()
		assert.True(t, done)
		assert.Equal(t, 42, result)
		assert.NoError(t, opErr)
	})

	t.Run("second completion is a no-op", func(t *testing.T) {
		assert.False(t, op.Complete(99, errors.New("late")))
		result, _, opErr := op.Outcome()
		assert.Equal(t, 42, result)
		assert.NoError(t, opErr)
	})
}

func TestBinding_Dispose(t *testing.T) {
	t.Run("aborts pending operations", func(t *testing.T) {
		b, inner := newTestBinding()
		op, err := b.Begin(OpRead)
		require.NoError(t, err)

		forced := b.Dispose()
		assert.True(t, forced)
		assert.True(t, b.Disposed())
		assert.EqualValues(t, 1, inner.disposeCalls.Load())
		assert.Equal(t, 0, b.PendingCount())

		result, done, opErr := op.Outcome()
		assert.True(t, done)
		assert.Equal(t, 0, result)
		assert.ErrorIs(t, opErr, ErrOperationAborted)
	})

	t.Run("reports no force when nothing was pending", func(t *testing.T) {
		b, _ := newTestBinding()
		op, err := b.Begin(OpWrite)
		require.NoError(t, err)
		require.True(t, op.Complete(8, nil))

		assert.False(t, b.Dispose())
	})

	t.Run("is idempotent", func(t *testing.T) {
		b, inner := newTestBinding()
		_, err := b.Begin(OpRead)
		require.NoError(t, err)

		assert.True(t, b.Dispose())
		assert.False(t, b.Dispose())
		assert.EqualValues(t, 1, inner.disposeCalls.Load())
	})
}

func TestBinding_UseAfterDispose(t *testing.T) {
	b, _ := newTestBinding()
	op, err := b.Begin(OpRead)
	require.NoError(t, err)
	b.Dispose()

	t.Run("new operations are rejected", func(t *testing.T) {
		_, err := b.Begin(OpWrite)
		assert.ErrorIs(t, err, ErrBindingDisposed)
	})

	t.Run("records issued before disposal stay readable", func(t *testing.T) {
		assert.Equal(t, OpRead, op.Name())
		_, done, opErr := op.Outcome()
		assert.True(t, done)
		assert.ErrorIs(t, opErr, ErrOperationAborted)
	})

	t.Run("late completion of an aborted record is a safe no-op", func(t *testing.T) {
		assert.False(t, op.Complete(16, nil))
		_, _, opErr := op.Outcome()
		assert.ErrorIs(t, opErr, ErrOperationAborted)
	})

	t.Run("flags remain readable", func(t *testing.T) {
		assert.False(t, b.SkipsSyncNotification())
		assert.True(t, b.Disposed())
	})
}
