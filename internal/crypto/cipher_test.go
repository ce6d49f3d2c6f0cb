package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherByName(t *testing.T) {
	cases := map[string]Cipher{
		"aes-256-cbc":       CipherAES256CBC,
		"chacha20":          CipherChacha20,
		"aes-256-gcm":       CipherAES256GCM,
		"chacha20-poly1305": CipherChacha20Poly1305,
	}
	for name, want := range cases {
		got, err := CipherByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	_, err := CipherByName("rot13")
	assert.Error(t, err)
}

func TestCipherIsAEAD(t *testing.T) {
	assert.True(t, CipherAES256GCM.IsAEAD())
	assert.True(t, CipherChacha20Poly1305.IsAEAD())
	assert.False(t, CipherAES256CBC.IsAEAD())
	assert.False(t, CipherChacha20.IsAEAD())
}

func TestCipherIVLen(t *testing.T) {
	assert.Equal(t, 16, CipherAES256CBC.IVLen())
	assert.Equal(t, 12, CipherAES256GCM.IVLen())
	assert.Equal(t, 12, CipherChacha20.IVLen())
	assert.Equal(t, 12, CipherChacha20Poly1305.IVLen())
}

func TestCipherNoneInvalid(t *testing.T) {
	assert.False(t, CipherNone.valid())
	_, err := Create(CipherNone)
	assert.Error(t, err)
}
