package fileobj

import (
	"crypto/subtle"
	"fmt"
	"os"

	"github.com/rvault/rvault/internal/crypto"
	"github.com/rvault/rvault/internal/fsutil"
	"github.com/rvault/rvault/internal/sbuf"
	"golang.org/x/sys/unix"
)

const fileMode = 0o600

// ErrAuth is returned when a file object's tag fails to verify: a
// tampered or corrupted file, indistinguishable from a programming
// error that supplied the wrong key.
var ErrAuth = fmt.Errorf("file object authentication failed")

// Write seals plaintext and durably writes it to path: write to a
// sibling temp file, fsync, rename over target, fsync parent. plaintext
// is never referenced after this call returns.
func Write(path string, plaintext []byte, state *crypto.State) error {
	cipher := state.Cipher()
	edataLen := cipherEDataLen(cipher, len(plaintext))
	hdr := &Header{Ver: Ver, HmacLen: uint16(cipher.TagLen()), EDataLen: edataLen}
	hdrBytes := encodeHeader(hdr)

	sealed, err := state.Encrypt(plaintext, hdrBytes)
	if err != nil {
		return fmt.Errorf("encrypt file object: %w", err)
	}

	var ciphertext, tag []byte
	if cipher.IsAEAD() {
		if len(sealed) < cipher.TagLen() {
			return fmt.Errorf("encrypt file object: sealed output shorter than tag")
		}
		split := len(sealed) - cipher.TagLen()
		ciphertext, tag = sealed[:split], sealed[split:]
	} else {
		ciphertext = sealed
		mac := crypto.HMACSHA3256(mustKey(state), append(append([]byte(nil), hdrBytes...), ciphertext...))
		tag = mac[:]
	}
	if uint64(len(ciphertext)) != edataLen {
		return fmt.Errorf("encrypt file object: ciphertext length %d, expected %d", len(ciphertext), edataLen)
	}

	record := make([]byte, hdr.FileLen())
	copy(record, hdrBytes)
	copy(record[HdrLen:], ciphertext)
	copy(record[HdrLen+len(ciphertext):], tag)

	return fsutil.WriteFileAtomic(path, record, fileMode)
}

// Read maps path, validates its header, verifies its tag, and decrypts
// it into a secure buffer the caller owns and must release via
// buf.Free() (or, for the bytes it copies out, sbuf.Wipe).
func Read(path string, state *crypto.State) (*sbuf.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file object: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file object: %w", err)
	}
	size := fi.Size()
	if size < HdrLen {
		return nil, fmt.Errorf("file object truncated: %d bytes", size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap file object: %w", err)
	}
	defer unix.Munmap(data)

	hdr, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if hdr.FileLen() != size {
		return nil, fmt.Errorf("file object corrupted: recorded length %d, actual %d", hdr.FileLen(), size)
	}

	cipher := state.Cipher()
	if int(hdr.HmacLen) != cipher.TagLen() {
		return nil, fmt.Errorf("file object tag length %d does not match cipher %s", hdr.HmacLen, cipher)
	}

	hdrBytes := data[:HdrLen]
	ciphertext := data[HdrLen : HdrLen+hdr.EDataLen]
	tag := data[HdrLen+hdr.EDataLen : HdrLen+hdr.EDataLen+uint64(hdr.HmacLen)]

	var plaintext []byte
	if cipher.IsAEAD() {
		combined := make([]byte, 0, len(ciphertext)+len(tag))
		combined = append(combined, ciphertext...)
		combined = append(combined, tag...)
		plaintext, err = state.Decrypt(combined, hdrBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
	} else {
		mac := crypto.HMACSHA3256(mustKey(state), append(append([]byte(nil), hdrBytes...), ciphertext...))
		if subtle.ConstantTimeCompare(mac[:], tag) != 1 {
			return nil, ErrAuth
		}
		plaintext, err = state.Decrypt(ciphertext, nil)
		if err != nil {
			return nil, fmt.Errorf("decrypt file object: %w", err)
		}
	}

	buf, err := sbuf.Alloc(len(plaintext))
	if err != nil {
		return nil, fmt.Errorf("allocate secure buffer: %w", err)
	}
	copy(buf.Bytes(), plaintext)
	sbuf.Wipe(plaintext)
	return buf, nil
}

func mustKey(state *crypto.State) []byte {
	key, err := state.GetKey()
	if err != nil {
		// Callers only reach here once the vault is fully keyed;
		// an error here means a programming mistake upstream.
		panic("fileobj: no key installed on crypto state")
	}
	return key
}
