// Package storage implements the vault metadata codec: the on-disk
// header, IV, KDF parameter blob and HMAC, plus the read/write/verify
// discipline around it.
package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/rvault/rvault/internal/crypto"
)

// HdrLen is the size, in bytes, of the packed header prefix once padded
// to the storage alignment boundary. IV, KDF parameters and HMAC follow
// immediately after.
const HdrLen = 64

// HMACLen is the length of the trailing metadata HMAC-SHA3-256 tag.
const HMACLen = 32

// ABIVersion is the only metadata version this implementation writes or
// accepts.
const ABIVersion = 1

// FlagNoAuth, set in Header.Flags, means the vault uses K_p directly as
// K_e with no remote authenticator round-trip.
const FlagNoAuth = 1

// Header is the in-memory, validated representation of a vault's
// metadata. Offsets into the packed on-disk layout are handled entirely
// by encode/parse below; nothing outside this file does pointer
// arithmetic over the wire format.
type Header struct {
	Ver       uint8
	Cipher    crypto.Cipher
	Flags     uint8
	UID       uuid.UUID
	IV        []byte
	KDFParams []byte
	HMAC      [HMACLen]byte
}

// FileLen is the total on-disk length implied by the header's recorded
// field lengths: RVAULT_FILE_LEN in the reference layout.
func (h *Header) FileLen() int64 {
	return int64(HdrLen) + int64(len(h.IV)) + int64(len(h.KDFParams)) + int64(HMACLen)
}

// hmacDataLen is the span HMAC'd: header prefix through end of KDF
// params, i.e. everything except the HMAC field itself.
func (h *Header) hmacDataLen() int64 {
	return int64(HdrLen) + int64(len(h.IV)) + int64(len(h.KDFParams))
}

// encodePrefix packs ver, cipher, iv_len, kp_len, uid and flags into the
// first HdrLen bytes of the on-disk record. kp_len is deliberately
// written in little-endian order rather than big-endian like iv_len: the
// reference C implementation assigned it straight from a size_t without
// byte-swapping, and this format reproduces that quirk byte-for-byte so
// vaults stay compatible across implementations.
func encodePrefix(h *Header) []byte {
	buf := make([]byte, HdrLen)
	buf[0] = h.Ver
	buf[1] = uint8(h.Cipher)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(h.IV)))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(h.KDFParams)))
	copy(buf[6:22], h.UID[:])
	buf[22] = h.Flags
	return buf
}

// parsePrefix reads the packed header fields out of the first HdrLen
// bytes of buf. It does not yet know iv_len/kp_len are trustworthy
// relative to the actual file size; the caller cross-checks FileLen()
// against the real file length before using IV/KDFParams/HMAC.
func parsePrefix(buf []byte) (ver, cipherID uint8, ivLen, kpLen int, id uuid.UUID, flags uint8, err error) {
	if len(buf) < HdrLen {
		return 0, 0, 0, 0, uuid.UUID{}, 0, fmt.Errorf("header prefix too short: %d bytes", len(buf))
	}
	ver = buf[0]
	cipherID = buf[1]
	ivLen = int(binary.BigEndian.Uint16(buf[2:4]))
	kpLen = int(binary.LittleEndian.Uint16(buf[4:6]))
	copy(id[:], buf[6:22])
	flags = buf[22]
	return
}
