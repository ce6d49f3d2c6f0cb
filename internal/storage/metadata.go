package storage

import (
	"bytes"
	"crypto/subtle"
	"fmt"
	"os"

	"github.com/rvault/rvault/internal/crypto"
	"golang.org/x/sys/unix"
)

// MetaFileName is the single fixed name of the vault metadata file
// within a vault's base directory.
const MetaFileName = ".rvault.metadata"

const metaFileMode = 0o600

// WriteMetadata creates the vault's metadata file. It uses
// O_CREAT|O_EXCL|O_WRONLY|O_SYNC so that init can never silently
// overwrite an existing vault, then fsyncs the file and its parent
// directory before returning.
func WriteMetadata(basePath string, h *Header) error {
	path := basePath + string(os.PathSeparator) + MetaFileName
	record := assemble(h)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_SYNC, metaFileMode)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", errAlreadyExists, path)
		}
		return fmt.Errorf("create metadata file: %w", err)
	}
	if _, err := f.Write(record); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write metadata file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("fsync metadata file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close metadata file: %w", err)
	}
	if err := fsyncDirOf(path); err != nil {
		return err
	}
	return nil
}

// errAlreadyExists is a local sentinel the caller (the Vault
// constructors in the root package) maps onto rvault.KindAlreadyExists.
var errAlreadyExists = fmt.Errorf("vault metadata file already exists")

// ErrAlreadyExists reports whether err originated from WriteMetadata
// finding an existing metadata file.
func ErrAlreadyExists(err error) bool {
	return err != nil && bytes.Contains([]byte(err.Error()), []byte(errAlreadyExists.Error()))
}

func assemble(h *Header) []byte {
	out := make([]byte, h.FileLen())
	copy(out, encodePrefix(h))
	copy(out[HdrLen:], h.IV)
	copy(out[HdrLen+len(h.IV):], h.KDFParams)
	copy(out[HdrLen+len(h.IV)+len(h.KDFParams):], h.HMAC[:])
	return out
}

func fsyncDirOf(path string) error {
	dir := path[:len(path)-len(MetaFileName)-1]
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open vault dir for fsync: %w", err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("fsync vault dir: %w", err)
	}
	return nil
}

// Mapped is a read-only memory-mapped view of a vault's metadata file.
// Close must be called to release the mapping.
type Mapped struct {
	data []byte
}

// Bytes returns the full mapped metadata record.
func (m *Mapped) Bytes() []byte { return m.data }

// Close unmaps the metadata file.
func (m *Mapped) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}

// ReadMetadataMmap maps the vault's metadata file read-only and returns
// both the mapping and the parsed, validated header. Any inconsistency
// between the recorded lengths and the actual file size is reported as
// a corrupt-vault condition.
func ReadMetadataMmap(basePath string) (*Mapped, *Header, error) {
	path := basePath + string(os.PathSeparator) + MetaFileName
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat metadata file: %w", err)
	}
	size := fi.Size()
	if size < HdrLen {
		return nil, nil, fmt.Errorf("metadata file truncated: %d bytes", size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap metadata file: %w", err)
	}
	mapped := &Mapped{data: data}

	h, err := parseHeader(data)
	if err != nil {
		mapped.Close()
		return nil, nil, err
	}
	if h.FileLen() != size {
		mapped.Close()
		return nil, nil, fmt.Errorf("metadata file corrupted: recorded length %d, actual %d", h.FileLen(), size)
	}
	return mapped, h, nil
}

// DecodeHeader parses a header from a raw metadata record held in
// memory rather than mapped from the vault's own metadata file, as when
// a header arrives embedded in a recovery blob. Unlike ReadMetadataMmap
// it cannot cross-check FileLen against a backing file's actual size,
// so it only validates that data is at least as long as the header
// claims.
func DecodeHeader(data []byte) (*Header, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if h.FileLen() > int64(len(data)) {
		return nil, fmt.Errorf("metadata record truncated: recorded length %d, have %d", h.FileLen(), len(data))
	}
	return h, nil
}

func parseHeader(data []byte) (*Header, error) {
	ver, cipherID, ivLen, kpLen, id, flags, err := parsePrefix(data)
	if err != nil {
		return nil, err
	}
	h := &Header{
		Ver:    ver,
		Cipher: crypto.Cipher(cipherID),
		Flags:  flags,
		UID:    id,
	}
	// iv/kp offsets are only trustworthy once the caller has verified
	// FileLen() against the real file size (done by ReadMetadataMmap).
	ivStart := HdrLen
	ivEnd := ivStart + ivLen
	kpEnd := ivEnd + kpLen
	hmacEnd := kpEnd + HMACLen
	if hmacEnd > len(data) {
		return nil, fmt.Errorf("metadata file corrupted: header lengths exceed file size")
	}
	h.IV = append([]byte(nil), data[ivStart:ivEnd]...)
	h.KDFParams = append([]byte(nil), data[ivEnd:kpEnd]...)
	copy(h.HMAC[:], data[kpEnd:hmacEnd])
	return h, nil
}

// ComputeHMAC computes the metadata HMAC over [header-prefix .. end of
// KDF params], keyed by whatever key is currently installed in state
// (K_e at both init time and open-verification time).
func ComputeHMAC(state *crypto.State, h *Header) ([32]byte, error) {
	key, err := state.GetKey()
	if err != nil {
		return [32]byte{}, fmt.Errorf("compute metadata hmac: %w", err)
	}
	data := make([]byte, h.hmacDataLen())
	copy(data, encodePrefix(h))
	copy(data[HdrLen:], h.IV)
	copy(data[HdrLen+len(h.IV):], h.KDFParams)
	return crypto.HMACSHA3256(key, data), nil
}

// VerifyHMAC recomputes the metadata HMAC and compares it, in constant
// time, against h.HMAC. A mismatch is reported identically whether it
// was caused by a wrong passphrase or by tampering.
func VerifyHMAC(state *crypto.State, h *Header) (bool, error) {
	computed, err := ComputeHMAC(state, h)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(computed[:], h.HMAC[:]) == 1, nil
}
