// Package sbuf provides a secure scratch-memory allocator: regions that
// are, where the platform supports it, locked out of swap, and are
// always overwritten with zeros before they are released. fileobj.Read
// decrypts file content into one of these. Key material in crypto.State
// is held in ordinary slices, which State.Destroy zeroizes, and
// File.Read in the root package returns a plain copy of the plaintext.
package sbuf

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Buffer is an owned region of secure scratch memory.
type Buffer struct {
	data   []byte
	locked bool
}

// Alloc reserves n bytes of secure scratch memory, best-effort locking it
// out of swap. Locking failures (lacking privilege, platform not
// supporting mlock, etc.) are not fatal: the buffer still guarantees
// zeroization on Free, just not swap exclusion.
func Alloc(n int) (*Buffer, error) {
	b := &Buffer{data: make([]byte, n)}
	if n > 0 {
		if err := unix.Mlock(b.data); err == nil {
			b.locked = true
		}
	}
	return b, nil
}

// Bytes returns the buffer's contents. The slice is only valid until the
// next Move or Free.
func (b *Buffer) Bytes() []byte { return b.data }

// Move reallocates the buffer to newSize, copying over min(old,new)
// bytes and zeroizing the old region before it is released.
func (b *Buffer) Move(newSize int) error {
	nb, err := Alloc(newSize)
	if err != nil {
		return fmt.Errorf("sbuf move: %w", err)
	}
	n := len(b.data)
	if newSize < n {
		n = newSize
	}
	copy(nb.data[:n], b.data[:n])
	b.Free()
	*b = *nb
	return nil
}

// Free overwrites the buffer's bytes with zeros, unlocks the region if it
// was locked, and releases it back to the allocator. Safe to call on an
// already-freed buffer.
func (b *Buffer) Free() {
	for i := range b.data {
		b.data[i] = 0
	}
	if b.locked {
		_ = unix.Munlock(b.data)
		b.locked = false
	}
	b.data = nil
}

// Wipe overwrites any byte slice with zeros. It is used for the one
// plaintext buffer handed back to a caller across the package boundary,
// which the caller is expected to wipe once done with it.
func Wipe(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
