package sbuf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocWriteFree(t *testing.T) {
	b, err := Alloc(16)
	require.NoError(t, err)
	copy(b.Bytes(), []byte("0123456789abcdef"))
	require.Equal(t, []byte("0123456789abcdef"), b.Bytes())

	b.Free()
	require.True(t, bytes.Equal(b.Bytes(), nil))
}

func TestMovePreservesPrefix(t *testing.T) {
	b, err := Alloc(4)
	require.NoError(t, err)
	copy(b.Bytes(), []byte("abcd"))

	require.NoError(t, b.Move(8))
	require.Equal(t, []byte("abcd"), b.Bytes()[:4])
	b.Free()
}

func TestWipe(t *testing.T) {
	data := []byte("secret-key-material")
	Wipe(data)
	for _, c := range data {
		require.Zero(t, c)
	}
}
