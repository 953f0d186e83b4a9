package secret

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func newBuffer(t *testing.T, capacity int) *Buffer {
	t.Helper()
	b, err := New(capacity)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, b.Close())
	})
	return b
}

func TestNew_InvalidCapacity(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)

	_, err = New(-3)
	assert.Error(t, err)
}

func TestAppend(t *testing.T) {
	b := newBuffer(t, 8)

	require.NoError(t, b.Append([]byte("abc")))
	require.NoError(t, b.Append([]byte("de")))

	assert.Equal(t, "abcde", string(b.Bytes()))
	assert.Equal(t, 5, b.Len())
	assert.Equal(t, 8, b.Cap())
}

func TestAppend_NeverExceedsCapacity(t *testing.T) {
	b := newBuffer(t, 4)

	require.NoError(t, b.Append([]byte("abcd")))
	assert.ErrorIs(t, b.Append([]byte("e")), ErrFull)
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, "abcd", string(b.Bytes()))
}

func TestAppend_PartialFitIsRejected(t *testing.T) {
	b := newBuffer(t, 4)

	require.NoError(t, b.Append([]byte("ab")))
	assert.ErrorIs(t, b.Append([]byte("cde")), ErrFull)
	assert.Equal(t, "ab", string(b.Bytes()))
}

func TestBackspace(t *testing.T) {
	b := newBuffer(t, 16)

	require.NoError(t, b.Append([]byte("aé")))
	require.Equal(t, 3, b.Len())

	assert.True(t, b.Backspace())
	assert.Equal(t, "a", string(b.Bytes()))
	assert.True(t, b.Backspace())
	assert.Equal(t, 0, b.Len())
}

func TestBackspace_EmptyIsNoop(t *testing.T) {
	b := newBuffer(t, 4)

	assert.False(t, b.Backspace())
	assert.Equal(t, 0, b.Len())
}

func TestBackspace_ZeroesRemovedBytes(t *testing.T) {
	b := newBuffer(t, 4)

	require.NoError(t, b.Append([]byte("xy")))
	b.Backspace()

	assert.Equal(t, byte(0), b.data[1])
}

func TestClear(t *testing.T) {
	b := newBuffer(t, 8)

	require.NoError(t, b.Append([]byte("hunter2")))
	b.Clear()

	assert.Equal(t, 0, b.Len())
	for i, v := range b.data {
		assert.Zerof(t, v, "byte %d not zeroed", i)
	}
}

func TestClose(t *testing.T) {
	b, err := New(8)
	require.NoError(t, err)
	require.NoError(t, b.Append([]byte("pw")))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "Close must be idempotent")

	assert.Nil(t, b.Bytes())
	assert.Equal(t, 0, b.Len())
	assert.ErrorIs(t, b.Append([]byte("x")), ErrClosed)
	assert.False(t, b.Backspace())
}
