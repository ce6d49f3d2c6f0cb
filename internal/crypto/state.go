package crypto

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"
)

// State is the live cryptographic context bound to a single cipher. A
// vault owns exactly one State for its whole lifetime: Uninitialized,
// then holding only K_p, then holding K_e after a successful open or
// recovery. Close destroys the key by zeroizing it.
type State struct {
	cipher Cipher
	iv     []byte
	key    []byte
}

// Create builds a crypto state bound to cipher. It holds no key or IV
// yet.
func Create(cipher Cipher) (*State, error) {
	if !cipher.valid() {
		return nil, fmt.Errorf("unsupported cipher id %d", cipher)
	}
	return &State{cipher: cipher}, nil
}

// Cipher reports the cipher this state was created with.
func (s *State) Cipher() Cipher { return s.cipher }

// GenIV generates and installs a fresh random IV of the cipher's
// required length, returning a copy for the caller to persist in the
// vault header.
func (s *State) GenIV() ([]byte, error) {
	iv := make([]byte, s.cipher.IVLen())
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}
	s.iv = iv
	out := make([]byte, len(iv))
	copy(out, iv)
	return out, nil
}

// SetIV installs a known IV, failing if its length does not match the
// cipher's requirement.
func (s *State) SetIV(iv []byte) error {
	if len(iv) != s.cipher.IVLen() {
		return fmt.Errorf("iv length %d, want %d", len(iv), s.cipher.IVLen())
	}
	s.iv = append([]byte(nil), iv...)
	return nil
}

// GenKey generates a fresh random K_e and installs it as the current
// key.
func (s *State) GenKey() error {
	key := make([]byte, s.cipher.KeyLen())
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	s.key = key
	return nil
}

// SetKey installs a known key, failing if its length is wrong.
func (s *State) SetKey(key []byte) error {
	if len(key) != s.cipher.KeyLen() {
		return fmt.Errorf("key length %d, want %d", len(key), s.cipher.KeyLen())
	}
	s.key = append([]byte(nil), key...)
	return nil
}

// SetPassphraseKey derives K_p from passphrase and the stored KDF
// parameter blob, and installs it as the current key.
func (s *State) SetPassphraseKey(passphrase string, kdfParamBlob []byte) error {
	key, err := DeriveKey(passphrase, kdfParamBlob, s.cipher.KeyLen())
	if err != nil {
		return err
	}
	s.key = key
	return nil
}

// GetKey returns the installed key. It is for use within this package
// tree only (HMAC computation, key wrapping); it must never be returned
// from an exported rvault API.
func (s *State) GetKey() ([]byte, error) {
	if s.key == nil {
		return nil, fmt.Errorf("no key installed")
	}
	return s.key, nil
}

// Destroy zeroizes the installed key and IV. Safe to call more than
// once.
func (s *State) Destroy() {
	for i := range s.key {
		s.key[i] = 0
	}
	s.key = nil
	for i := range s.iv {
		s.iv[i] = 0
	}
	s.iv = nil
}

// Encrypt seals plaintext under the installed key and IV. For AEAD
// ciphers the returned bytes are ciphertext||tag (the file-object codec
// splits the trailing TagLen() bytes off); ad is authenticated but not
// encrypted. For non-AEAD ciphers it returns the raw ciphertext with no
// tag; the caller applies HMAC-SHA3-256 separately (MAC-then-Encrypt).
func (s *State) Encrypt(plaintext, ad []byte) ([]byte, error) {
	if s.key == nil || s.iv == nil {
		return nil, fmt.Errorf("encrypt: key or iv not installed")
	}
	switch s.cipher {
	case CipherAES256GCM:
		aead, err := s.gcm()
		if err != nil {
			return nil, err
		}
		return aead.Seal(nil, s.iv, plaintext, ad), nil
	case CipherChacha20Poly1305:
		aead, err := chacha20poly1305.New(s.key)
		if err != nil {
			return nil, err
		}
		return aead.Seal(nil, s.iv, plaintext, ad), nil
	case CipherAES256CBC:
		return s.cbcEncrypt(plaintext)
	case CipherChacha20:
		return s.chacha20XOR(plaintext)
	default:
		return nil, fmt.Errorf("encrypt: unsupported cipher %s", s.cipher)
	}
}

// Decrypt opens data under the installed key and IV. For AEAD ciphers
// data must be ciphertext||tag and ad must match what Encrypt was given;
// authentication failure is reported as an error and no plaintext is
// returned. For non-AEAD ciphers data is raw ciphertext; the caller must
// have already verified the detached HMAC before calling Decrypt.
func (s *State) Decrypt(data, ad []byte) ([]byte, error) {
	if s.key == nil || s.iv == nil {
		return nil, fmt.Errorf("decrypt: key or iv not installed")
	}
	switch s.cipher {
	case CipherAES256GCM:
		aead, err := s.gcm()
		if err != nil {
			return nil, err
		}
		pt, err := aead.Open(nil, s.iv, data, ad)
		if err != nil {
			return nil, fmt.Errorf("gcm authentication failed: %w", err)
		}
		return pt, nil
	case CipherChacha20Poly1305:
		aead, err := chacha20poly1305.New(s.key)
		if err != nil {
			return nil, err
		}
		pt, err := aead.Open(nil, s.iv, data, ad)
		if err != nil {
			return nil, fmt.Errorf("chacha20-poly1305 authentication failed: %w", err)
		}
		return pt, nil
	case CipherAES256CBC:
		return s.cbcDecrypt(data)
	case CipherChacha20:
		return s.chacha20XOR(data)
	default:
		return nil, fmt.Errorf("decrypt: unsupported cipher %s", s.cipher)
	}
}

func (s *State) gcm() (gocipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return gocipher.NewGCM(block)
}

func (s *State) chacha20XOR(in []byte) ([]byte, error) {
	c, err := chacha20.NewUnauthenticatedCipher(s.key, s.iv)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(in))
	c.XORKeyStream(out, in)
	return out, nil
}

func (s *State) cbcEncrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	gocipher.NewCBCEncrypter(block, s.iv).CryptBlocks(out, padded)
	return out, nil
}

func (s *State) cbcDecrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, nil
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("cbc ciphertext not block aligned")
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	gocipher.NewCBCDecrypter(block, s.iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("invalid pkcs7 padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("invalid pkcs7 padding")
		}
	}
	return data[:len(data)-padLen], nil
}
