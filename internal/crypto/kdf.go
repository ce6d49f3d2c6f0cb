package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// kdfAlgoScrypt is the only KDF algorithm this implementation emits, but
// the parameter blob is self-describing so a future algorithm could be
// added without breaking the on-disk format.
const kdfAlgoScrypt = 1

const (
	defaultScryptN = 1 << 15 // 32768
	defaultScryptR = 8
	defaultScryptP = 1
	saltLen        = 16
)

// kdfParams are the scrypt parameters embedded, opaque to everything but
// this package, in the vault header's KDF parameter blob.
type kdfParams struct {
	N    uint32
	R    uint32
	P    uint32
	Salt []byte
}

// NewKDFParams generates a fresh salt and the default cost parameters,
// and returns the serialized blob that goes straight into the vault
// header. The blob is 29 bytes (algorithm id, three 32-bit cost fields
// and a 16-byte salt), well within the header's 16-bit kp_len field.
func NewKDFParams() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate kdf salt: %w", err)
	}
	p := kdfParams{N: defaultScryptN, R: defaultScryptR, P: defaultScryptP, Salt: salt}
	return p.serialize(), nil
}

func (p kdfParams) serialize() []byte {
	buf := make([]byte, 1+4+4+4+len(p.Salt))
	buf[0] = kdfAlgoScrypt
	binary.BigEndian.PutUint32(buf[1:5], p.N)
	binary.BigEndian.PutUint32(buf[5:9], p.R)
	binary.BigEndian.PutUint32(buf[9:13], p.P)
	copy(buf[13:], p.Salt)
	return buf
}

func parseKDFParams(blob []byte) (kdfParams, error) {
	if len(blob) < 13 {
		return kdfParams{}, fmt.Errorf("kdf params too short: %d bytes", len(blob))
	}
	if blob[0] != kdfAlgoScrypt {
		return kdfParams{}, fmt.Errorf("unrecognized kdf algorithm id %d", blob[0])
	}
	return kdfParams{
		N:    binary.BigEndian.Uint32(blob[1:5]),
		R:    binary.BigEndian.Uint32(blob[5:9]),
		P:    binary.BigEndian.Uint32(blob[9:13]),
		Salt: append([]byte(nil), blob[13:]...),
	}, nil
}

// DeriveKey runs scrypt over passphrase using the parameters embedded in
// blob, producing a key of the cipher's required length.
func DeriveKey(passphrase string, blob []byte, keyLen int) ([]byte, error) {
	p, err := parseKDFParams(blob)
	if err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), p.Salt, int(p.N), int(p.R), int(p.P), keyLen)
	if err != nil {
		return nil, fmt.Errorf("scrypt: %w", err)
	}
	return key, nil
}
