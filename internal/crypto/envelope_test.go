package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapUnwrapKeyRoundTrip(t *testing.T) {
	kp := make([]byte, 32)
	ke := make([]byte, 32)
	_, err := rand.Read(kp)
	require.NoError(t, err)
	_, err = rand.Read(ke)
	require.NoError(t, err)

	wrapped, err := WrapKey(kp, ke)
	require.NoError(t, err)

	got, err := UnwrapKey(kp, wrapped)
	require.NoError(t, err)
	require.Equal(t, ke, got)
}

func TestUnwrapKeyWrongKpFails(t *testing.T) {
	kp := make([]byte, 32)
	wrongKp := make([]byte, 32)
	ke := make([]byte, 32)
	_, err := rand.Read(kp)
	require.NoError(t, err)
	_, err = rand.Read(wrongKp)
	require.NoError(t, err)
	_, err = rand.Read(ke)
	require.NoError(t, err)

	wrapped, err := WrapKey(kp, ke)
	require.NoError(t, err)

	_, err = UnwrapKey(wrongKp, wrapped)
	require.Error(t, err)
}
