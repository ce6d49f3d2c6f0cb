package crypto

import (
	"crypto/hmac"

	"golang.org/x/crypto/sha3"
)

// HMACSHA3256 computes a 32-byte HMAC-SHA3-256 tag over data, keyed by
// key. It is used both for the vault metadata HMAC and for the
// MAC-then-Encrypt file-object tag on non-AEAD ciphers.
func HMACSHA3256(key, data []byte) [32]byte {
	h := hmac.New(sha3.New256, key)
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
