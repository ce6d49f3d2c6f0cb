// Package crypto implements the vault's symmetric cipher dispatch, key
// derivation and HMAC primitives. It is internal: the passphrase and
// data-encryption keys it handles never leave this package tree in the
// clear.
package crypto

import "fmt"

// Cipher identifies one of the vault's recognized symmetric ciphers. Zero
// is reserved ("none") and is always rejected.
type Cipher uint8

const (
	CipherNone Cipher = iota
	CipherAES256CBC
	CipherChacha20
	CipherAES256GCM
	CipherChacha20Poly1305
)

// CipherPrimary is the default cipher chosen at build time for new vaults.
const CipherPrimary = CipherAES256GCM

const (
	keyLen       = 32 // all enumerated ciphers use a 256-bit key
	hmacTagLen   = 32 // HMAC-SHA3-256 output, used by the MAC-then-Encrypt ciphers
	gcmTagLen    = 16
	polyTagLen   = 16
	cbcIVLen     = 16 // AES block size
	streamIVLen  = 12 // chacha20 / GCM / chacha20-poly1305 nonce size
)

func (c Cipher) String() string {
	switch c {
	case CipherAES256CBC:
		return "aes-256-cbc"
	case CipherChacha20:
		return "chacha20"
	case CipherAES256GCM:
		return "aes-256-gcm"
	case CipherChacha20Poly1305:
		return "chacha20-poly1305"
	default:
		return "none"
	}
}

// CipherByName resolves a cipher by its canonical name, as given on the
// command line and in InitOptions.Cipher. It returns CipherNone and an
// error for anything unrecognized.
func CipherByName(name string) (Cipher, error) {
	switch name {
	case "aes-256-cbc":
		return CipherAES256CBC, nil
	case "chacha20":
		return CipherChacha20, nil
	case "aes-256-gcm":
		return CipherAES256GCM, nil
	case "chacha20-poly1305":
		return CipherChacha20Poly1305, nil
	default:
		return CipherNone, fmt.Errorf("unsupported cipher %q", name)
	}
}

// IsAEAD reports whether c authenticates its own ciphertext, producing a
// tag as part of the Seal/Open operation rather than through a detached
// HMAC.
func (c Cipher) IsAEAD() bool {
	switch c {
	case CipherAES256GCM, CipherChacha20Poly1305:
		return true
	default:
		return false
	}
}

func (c Cipher) valid() bool {
	switch c {
	case CipherAES256CBC, CipherChacha20, CipherAES256GCM, CipherChacha20Poly1305:
		return true
	default:
		return false
	}
}

// KeyLen returns the key length in bytes required by c.
func (c Cipher) KeyLen() int { return keyLen }

// IVLen returns the IV/nonce length in bytes required by c.
func (c Cipher) IVLen() int {
	switch c {
	case CipherAES256CBC:
		return cbcIVLen
	default:
		return streamIVLen
	}
}

// TagLen returns the authentication tag length in bytes appended to every
// file object and used as the HMAC length recorded in the file-object
// header's hmac_len field.
func (c Cipher) TagLen() int {
	switch c {
	case CipherAES256GCM:
		return gcmTagLen
	case CipherChacha20Poly1305:
		return polyTagLen
	default:
		return hmacTagLen
	}
}
