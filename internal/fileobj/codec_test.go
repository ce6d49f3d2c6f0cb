package fileobj

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rvault/rvault/internal/crypto"
	"github.com/stretchr/testify/require"
)

func newKeyedState(t *testing.T, c crypto.Cipher) *crypto.State {
	t.Helper()
	s, err := crypto.Create(c)
	require.NoError(t, err)
	_, err = s.GenIV()
	require.NoError(t, err)
	require.NoError(t, s.GenKey())
	return s
}

func allCiphers() []crypto.Cipher {
	return []crypto.Cipher{crypto.CipherAES256CBC, crypto.CipherChacha20, crypto.CipherAES256GCM, crypto.CipherChacha20Poly1305}
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, c := range allCiphers() {
		c := c
		t.Run(c.String(), func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "secret")
			state := newKeyedState(t, c)

			plaintext := []byte("shibboleth")
			require.NoError(t, Write(path, plaintext, state))

			buf, err := Read(path, state)
			require.NoError(t, err)
			defer buf.Free()
			require.Equal(t, plaintext, buf.Bytes())
		})
	}
}

func TestWriteReadEmptyFile(t *testing.T) {
	for _, c := range allCiphers() {
		c := c
		t.Run(c.String(), func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "empty")
			state := newKeyedState(t, c)

			require.NoError(t, Write(path, nil, state))
			buf, err := Read(path, state)
			require.NoError(t, err)
			defer buf.Free()
			require.Empty(t, buf.Bytes())
		})
	}
}

func TestWriteReadLargeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "large")
	state := newKeyedState(t, crypto.CipherAES256GCM)

	plaintext := bytes.Repeat([]byte{0xab}, 4*1024*1024)
	require.NoError(t, Write(path, plaintext, state))

	buf, err := Read(path, state)
	require.NoError(t, err)
	defer buf.Free()
	require.True(t, bytes.Equal(plaintext, buf.Bytes()))
}

func TestReadDetectsBitFlip(t *testing.T) {
	for _, c := range allCiphers() {
		c := c
		t.Run(c.String(), func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "flipped")
			state := newKeyedState(t, c)

			plaintext := bytes.Repeat([]byte{0x11}, 4096)
			require.NoError(t, Write(path, plaintext, state))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			data[len(data)-1] ^= 0xff
			require.NoError(t, os.WriteFile(path, data, 0o600))

			_, err = Read(path, state)
			require.ErrorIs(t, err, ErrAuth)
		})
	}
}

func TestReadWrongKeyFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret")
	state := newKeyedState(t, crypto.CipherAES256GCM)
	require.NoError(t, Write(path, []byte("hello"), state))

	wrongState, err := crypto.Create(crypto.CipherAES256GCM)
	require.NoError(t, err)
	require.NoError(t, wrongState.SetIV(make([]byte, crypto.CipherAES256GCM.IVLen())))
	require.NoError(t, wrongState.GenKey())

	_, err = Read(path, wrongState)
	require.Error(t, err)
}
