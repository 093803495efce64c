package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLock_ReleaseTwiceIsSafe(t *testing.T) {
	l := newKeyedLock()
	release, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	release()
	release()
	assert.Equal(t, 0, l.size())

	release, err = l.Lock(context.Background(), "a")
	require.NoError(t, err)
	release()
}

func TestKeyedLock_IndependentKeys(t *testing.T) {
	l := newKeyedLock()
	ra, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	rb, err := l.Lock(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, 2, l.size())
	ra()
	rb()
	assert.Equal(t, 0, l.size())
}

func TestKeyedLock_CancelledWaiter(t *testing.T) {
	l := newKeyedLock()
	release, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, "a")
	require.ErrorIs(t, err, context.Canceled)

	release()
	assert.Equal(t, 0, l.size())
}
