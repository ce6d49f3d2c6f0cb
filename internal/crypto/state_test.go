package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func allCiphers() []Cipher {
	return []Cipher{CipherAES256CBC, CipherChacha20, CipherAES256GCM, CipherChacha20Poly1305}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, c := range allCiphers() {
		c := c
		t.Run(c.String(), func(t *testing.T) {
			s, err := Create(c)
			require.NoError(t, err)
			_, err = s.GenIV()
			require.NoError(t, err)
			require.NoError(t, s.GenKey())

			plaintext := []byte("the quick brown fox jumps over the lazy dog")
			ad := []byte("associated-data")
			ct, err := s.Encrypt(plaintext, ad)
			require.NoError(t, err)

			pt, err := s.Decrypt(ct, ad)
			require.NoError(t, err)
			require.Equal(t, plaintext, pt)
		})
	}
}

func TestEncryptDecryptEmptyPlaintext(t *testing.T) {
	for _, c := range allCiphers() {
		c := c
		t.Run(c.String(), func(t *testing.T) {
			s, err := Create(c)
			require.NoError(t, err)
			_, err = s.GenIV()
			require.NoError(t, err)
			require.NoError(t, s.GenKey())

			ct, err := s.Encrypt(nil, []byte("ad"))
			require.NoError(t, err)
			pt, err := s.Decrypt(ct, []byte("ad"))
			require.NoError(t, err)
			require.Empty(t, pt)
		})
	}
}

func TestAEADTamperDetected(t *testing.T) {
	s, err := Create(CipherAES256GCM)
	require.NoError(t, err)
	_, err = s.GenIV()
	require.NoError(t, err)
	require.NoError(t, s.GenKey())

	ct, err := s.Encrypt([]byte("secret"), []byte("ad"))
	require.NoError(t, err)
	ct[0] ^= 0xff

	_, err = s.Decrypt(ct, []byte("ad"))
	require.Error(t, err)
}

func TestDestroyZeroizes(t *testing.T) {
	s, err := Create(CipherAES256GCM)
	require.NoError(t, err)
	require.NoError(t, s.GenKey())
	key, err := s.GetKey()
	require.NoError(t, err)
	require.NotEmpty(t, key)

	s.Destroy()
	require.Equal(t, make([]byte, len(key)), key)
	_, err = s.GetKey()
	require.Error(t, err)

	// Destroy is safe to call twice.
	s.Destroy()
}

func TestSetKeyWrongLengthRejected(t *testing.T) {
	s, err := Create(CipherAES256GCM)
	require.NoError(t, err)
	err = s.SetKey(make([]byte, 3))
	require.Error(t, err)
}
