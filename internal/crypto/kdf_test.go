package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	blob, err := NewKDFParams()
	require.NoError(t, err)

	k1, err := DeriveKey("correct horse battery staple", blob, 32)
	require.NoError(t, err)
	k2, err := DeriveKey("correct horse battery staple", blob, 32)
	require.NoError(t, err)
	require.Equal(t, k1, k2)

	k3, err := DeriveKey("wrong passphrase", blob, 32)
	require.NoError(t, err)
	require.NotEqual(t, k1, k3)
}

func TestDeriveKeyFreshSaltDiffers(t *testing.T) {
	blobA, err := NewKDFParams()
	require.NoError(t, err)
	blobB, err := NewKDFParams()
	require.NoError(t, err)
	require.NotEqual(t, blobA, blobB)

	kA, err := DeriveKey("same passphrase", blobA, 32)
	require.NoError(t, err)
	kB, err := DeriveKey("same passphrase", blobB, 32)
	require.NoError(t, err)
	require.NotEqual(t, kA, kB)
}
