package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rvault/rvault/internal/crypto"
	"github.com/stretchr/testify/require"
)

func newTestHeader(t *testing.T) (*Header, *crypto.State) {
	t.Helper()
	state, err := crypto.Create(crypto.CipherAES256GCM)
	require.NoError(t, err)
	iv, err := state.GenIV()
	require.NoError(t, err)
	require.NoError(t, state.GenKey())
	kdfParams, err := crypto.NewKDFParams()
	require.NoError(t, err)

	h := &Header{
		Ver:       ABIVersion,
		Cipher:    crypto.CipherAES256GCM,
		UID:       uuid.New(),
		IV:        iv,
		KDFParams: kdfParams,
	}
	tag, err := ComputeHMAC(state, h)
	require.NoError(t, err)
	h.HMAC = tag
	return h, state
}

func TestWriteReadMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	h, state := newTestHeader(t)

	require.NoError(t, WriteMetadata(dir, h))

	mapped, got, err := ReadMetadataMmap(dir)
	require.NoError(t, err)
	defer mapped.Close()

	require.Equal(t, h.Ver, got.Ver)
	require.Equal(t, h.Cipher, got.Cipher)
	require.Equal(t, h.UID, got.UID)
	require.Equal(t, h.IV, got.IV)
	require.Equal(t, h.KDFParams, got.KDFParams)
	require.Equal(t, h.HMAC, got.HMAC)

	ok, err := VerifyHMAC(state, got)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestWriteMetadataRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	h, _ := newTestHeader(t)
	require.NoError(t, WriteMetadata(dir, h))

	err := WriteMetadata(dir, h)
	require.Error(t, err)
	require.True(t, ErrAlreadyExists(err))
}

func TestVerifyHMACDetectsTamper(t *testing.T) {
	dir := t.TempDir()
	h, state := newTestHeader(t)
	require.NoError(t, WriteMetadata(dir, h))

	path := filepath.Join(dir, MetaFileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[HdrLen] ^= 0xff // flip a byte inside the IV
	require.NoError(t, os.WriteFile(path, data, 0o600))

	mapped, got, err := ReadMetadataMmap(dir)
	require.NoError(t, err)
	defer mapped.Close()

	ok, err := VerifyHMAC(state, got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyHMACWrongKeyFails(t *testing.T) {
	dir := t.TempDir()
	h, _ := newTestHeader(t)
	require.NoError(t, WriteMetadata(dir, h))

	mapped, got, err := ReadMetadataMmap(dir)
	require.NoError(t, err)
	defer mapped.Close()

	wrongState, err := crypto.Create(crypto.CipherAES256GCM)
	require.NoError(t, err)
	require.NoError(t, wrongState.GenKey())

	ok, err := VerifyHMAC(wrongState, got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDecodeHeaderMatchesReadMetadata(t *testing.T) {
	dir := t.TempDir()
	h, _ := newTestHeader(t)
	require.NoError(t, WriteMetadata(dir, h))

	raw, err := os.ReadFile(filepath.Join(dir, MetaFileName))
	require.NoError(t, err)

	decoded, err := DecodeHeader(raw)
	require.NoError(t, err)
	require.Equal(t, h.UID, decoded.UID)
	require.Equal(t, h.HMAC, decoded.HMAC)
}
