// Package fileobj implements the authenticated file-object layout used
// for every encrypted file in a vault: header || ciphertext || tag, with
// authenticate-then-decrypt enforced on every read.
package fileobj

import (
	"encoding/binary"
	"fmt"

	"github.com/rvault/rvault/internal/crypto"
)

// HdrLen is the size, in bytes, of the packed file-object header once
// padded to the storage alignment boundary.
const HdrLen = 64

// Ver is the only file-object format version this implementation writes.
const Ver = 1

// Header is the in-memory representation of a file object's header.
type Header struct {
	Ver      uint8
	HmacLen  uint16
	EDataLen uint64
}

// FileLen is the total on-disk length implied by the header.
func (h *Header) FileLen() int64 {
	return int64(HdrLen) + int64(h.EDataLen) + int64(h.HmacLen)
}

func encodeHeader(h *Header) []byte {
	buf := make([]byte, HdrLen)
	buf[0] = h.Ver
	// buf[1] reserved
	binary.BigEndian.PutUint16(buf[2:4], h.HmacLen)
	binary.BigEndian.PutUint64(buf[4:12], h.EDataLen)
	return buf
}

func parseHeader(buf []byte) (*Header, error) {
	if len(buf) < HdrLen {
		return nil, fmt.Errorf("file object header truncated: %d bytes", len(buf))
	}
	h := &Header{
		Ver:      buf[0],
		HmacLen:  binary.BigEndian.Uint16(buf[2:4]),
		EDataLen: binary.BigEndian.Uint64(buf[4:12]),
	}
	if h.Ver != Ver {
		return nil, fmt.Errorf("unsupported file object version %d", h.Ver)
	}
	return h, nil
}

// cipherEDataLen returns the ciphertext length a cipher will produce for
// a given plaintext length, computed before encryption so the header
// (used as AEAD associated data) can be finalized up front.
func cipherEDataLen(c crypto.Cipher, plaintextLen int) uint64 {
	if c == crypto.CipherAES256CBC {
		// PKCS7 over a 16-byte block: always adds at least one full
		// block, even for already block-aligned input.
		return uint64((plaintextLen/16 + 1) * 16)
	}
	return uint64(plaintextLen)
}
