// Package recovery consumes a recovery blob's in-memory section array:
// a small self-describing container carrying the raw metadata header
// bytes and the raw K_e bytes, letting a vault be opened without the
// passphrase or server round-trip. Producing a human-presentable
// recovery document (QR code, printable word list) is explicitly out of
// scope; this package only parses the binary container the generator
// would emit.
package recovery

import (
	"encoding/binary"
	"fmt"
)

// SectionKind identifies one section of a parsed recovery blob.
type SectionKind uint8

const (
	SectionMetadata SectionKind = 1
	SectionEKey     SectionKind = 2
)

var magic = [4]byte{'R', 'V', 'R', 'F'}

// Sections is the parsed form of a recovery blob: raw bytes indexed by
// section kind. Unknown kinds are preserved opaquely rather than
// rejected, so a newer recovery-file generator can add sections this
// vault core doesn't need.
type Sections map[SectionKind][]byte

// Metadata returns the METADATA section, which must byte-for-byte equal
// the vault's metadata file contents.
func (s Sections) Metadata() ([]byte, error) {
	b, ok := s[SectionMetadata]
	if !ok {
		return nil, fmt.Errorf("recovery blob missing METADATA section")
	}
	return b, nil
}

// EKey returns the EKEY section: the raw data-encryption key.
func (s Sections) EKey() ([]byte, error) {
	b, ok := s[SectionEKey]
	if !ok {
		return nil, fmt.Errorf("recovery blob missing EKEY section")
	}
	return b, nil
}

// Parse decodes a recovery blob: a 4-byte magic, a big-endian u16
// section count, then that many {kind u8, length u32 BE, bytes} triples.
func Parse(data []byte) (Sections, error) {
	if len(data) < 6 || [4]byte(data[:4]) != magic {
		return nil, fmt.Errorf("recovery blob: bad magic")
	}
	count := binary.BigEndian.Uint16(data[4:6])
	out := make(Sections, count)
	off := 6
	for i := 0; i < int(count); i++ {
		if off+5 > len(data) {
			return nil, fmt.Errorf("recovery blob: truncated section header")
		}
		kind := SectionKind(data[off])
		length := binary.BigEndian.Uint32(data[off+1 : off+5])
		off += 5
		if off+int(length) > len(data) {
			return nil, fmt.Errorf("recovery blob: truncated section body")
		}
		out[kind] = append([]byte(nil), data[off:off+int(length)]...)
		off += int(length)
	}
	return out, nil
}
