package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// WrapKey implements the vault's envelope encryption step, K_s =
// Enc(K_p, K_e): it seals K_e under K_p with AES-256-GCM, independent of
// whichever cipher the vault itself uses for file content, since the
// wrapped key is a fixed-shape secret handed to the key server rather
// than vault-format data.
func WrapKey(kp, ke []byte) ([]byte, error) {
	block, err := aes.NewCipher(kp)
	if err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, ke, nil)
	return append(nonce, sealed...), nil
}

// UnwrapKey reverses WrapKey, recovering K_e from K_s under K_p. A
// mismatched passphrase produces a different K_p and therefore an
// authentication failure here, which the caller reports the same way it
// reports a corrupt vault.
func UnwrapKey(kp, wrapped []byte) ([]byte, error) {
	block, err := aes.NewCipher(kp)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", err)
	}
	if len(wrapped) < gcm.NonceSize() {
		return nil, fmt.Errorf("unwrap key: wrapped key too short")
	}
	nonce, sealed := wrapped[:gcm.NonceSize()], wrapped[gcm.NonceSize():]
	ke, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: authentication failed: %w", err)
	}
	return ke, nil
}
