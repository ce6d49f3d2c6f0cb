package pathresolver

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	for _, name := range []string{"passwords.txt", "a", "a longer name with spaces.doc", ""} {
		stored, err := Resolve(key, name)
		require.NoError(t, err)

		back, err := ResolveVname(key, stored)
		require.NoError(t, err)
		require.Equal(t, name, back)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	a, err := Resolve(key, "same-name")
	require.NoError(t, err)
	b, err := Resolve(key, "same-name")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestResolveDifferentKeysDiffer(t *testing.T) {
	k1 := make([]byte, 32)
	k2 := make([]byte, 32)
	_, err := rand.Read(k1)
	require.NoError(t, err)
	_, err = rand.Read(k2)
	require.NoError(t, err)

	a, err := Resolve(k1, "same-name")
	require.NoError(t, err)
	b, err := Resolve(k2, "same-name")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestResolveVnameRejectsGarbage(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	_, err = ResolveVname(key, "not-a-valid-stored-name!!")
	require.Error(t, err)
}
