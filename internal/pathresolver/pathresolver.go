// Package pathresolver maps logical (user-visible) paths and names onto
// the stored (on-disk) names a vault actually writes, and back. The
// mapping is deterministic and reversible under the vault's data key: a
// name is encrypted with AES-CTR under K_e using a synthetic IV derived
// from an HMAC of the name itself, so the same logical name always
// resolves to the same stored name without needing a side index, and
// any stored name can be decrypted back to its logical form by anyone
// holding K_e.
package pathresolver

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base32"
	"fmt"

	"github.com/rvault/rvault/internal/crypto"
)

var storedEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Resolve maps a logical name to its stored on-disk form.
func Resolve(key []byte, name string) (string, error) {
	block, iv, err := nameCipher(key, name)
	if err != nil {
		return "", err
	}
	ct := make([]byte, len(name))
	cipher.NewCTR(block, iv).XORKeyStream(ct, []byte(name))
	return storedEncoding.EncodeToString(append(iv[:ivUsedLen], ct...)), nil
}

// ResolveVname maps a stored on-disk name back to its logical form. It
// returns an error (rather than skipping silently) so a caller
// enumerating a directory can distinguish a foreign file from one of
// its own, and so a caller resolving a single name directly gets a
// clear failure.
func ResolveVname(key []byte, stored string) (string, error) {
	raw, err := storedEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("pathresolver: not a valid stored name: %w", err)
	}
	if len(raw) < ivUsedLen {
		return "", fmt.Errorf("pathresolver: stored name too short")
	}
	iv := make([]byte, aes.BlockSize)
	copy(iv, raw[:ivUsedLen])
	ct := raw[ivUsedLen:]

	block, err := aes.NewCipher(keyFor(key))
	if err != nil {
		return "", err
	}
	pt := make([]byte, len(ct))
	cipher.NewCTR(block, iv).XORKeyStream(pt, ct)
	return string(pt), nil
}

// ivUsedLen is the number of synthetic-IV bytes persisted in the stored
// name; it is shorter than aes.BlockSize purely to keep stored names
// compact, and is zero-padded back out to a full block on decode.
const ivUsedLen = 8

func nameCipher(key []byte, name string) (cipher.Block, []byte, error) {
	block, err := aes.NewCipher(keyFor(key))
	if err != nil {
		return nil, nil, err
	}
	mac := crypto.HMACSHA3256(key, []byte(name))
	iv := make([]byte, aes.BlockSize)
	copy(iv, mac[:ivUsedLen])
	return block, iv, nil
}

// keyFor derives a 32-byte AES key for name encryption from K_e via
// domain-separated HMAC, so name confidentiality does not depend on
// reusing K_e directly as an AES key of possibly-mismatched length.
func keyFor(key []byte) []byte {
	mac := crypto.HMACSHA3256(key, []byte("rvault-path-names"))
	return mac[:]
}
