package rvault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rvault/rvault/internal/fileobj"
	"github.com/rvault/rvault/internal/pathresolver"
	"github.com/rvault/rvault/internal/sbuf"
	"github.com/rvault/rvault/internal/storage"
)

func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// File is a single open file object within a Vault. It is obtained via
// Vault.OpenFile or Vault.CreateFile and tracked in the owning Vault's
// handle table until Close releases it.
type File struct {
	vault       *Vault
	handle      Handle
	logicalPath string
	storagePath string
	buf         *sbuf.Buffer
}

// Handle returns the opaque handle identifying f within its Vault.
func (f *File) Handle() Handle { return f.handle }

// resolvePath maps a logical, "/"-separated path onto its on-disk form
// by resolving each path segment independently, so that directory
// components and the leaf name are each obfuscated on their own.
// Resolving a path does not require the intermediate directories to
// already exist on disk; CreateFile creates them as needed.
func (v *Vault) resolvePath(logicalPath string) (string, error) {
	key, err := v.crypto.GetKey()
	if err != nil {
		return "", newErr(KindCrypto, "resolve", err)
	}
	segments := strings.Split(strings.Trim(logicalPath, "/"), "/")
	resolved := make([]string, 0, len(segments)+1)
	resolved = append(resolved, v.basePath)
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		stored, err := pathresolver.Resolve(key, seg)
		if err != nil {
			return "", newErr(KindBadArgument, "resolve", err)
		}
		resolved = append(resolved, stored)
	}
	return filepath.Join(resolved...), nil
}

func (v *Vault) allocHandle() Handle {
	v.nextHandle++
	return v.nextHandle
}

// CreateFile seals plaintext under the vault's data key and durably
// writes it at logicalPath, returning an open handle positioned on the
// new file object. Callers that only need a one-shot write should use
// WriteFile instead.
func (v *Vault) CreateFile(logicalPath string, plaintext []byte) (*File, error) {
	if v.closed {
		return nil, newErr(KindBadArgument, "create", fmt.Errorf("vault is closed"))
	}
	storagePath, err := v.resolvePath(logicalPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(storagePath), 0o700); err != nil {
		return nil, newErr(KindIO, "create", err)
	}
	if err := fileobj.Write(storagePath, plaintext, v.crypto); err != nil {
		return nil, newErr(KindIO, "create", err)
	}
	f := &File{vault: v, handle: v.allocHandle(), logicalPath: logicalPath, storagePath: storagePath}
	v.files[f.handle] = f
	return f, nil
}

// OpenFile authenticates and decrypts the file object at logicalPath,
// returning an open handle whose Read returns the plaintext. A wrong
// key and a tampered file are reported identically, as KindCrypto.
func (v *Vault) OpenFile(logicalPath string) (*File, error) {
	if v.closed {
		return nil, newErr(KindBadArgument, "open", fmt.Errorf("vault is closed"))
	}
	storagePath, err := v.resolvePath(logicalPath)
	if err != nil {
		return nil, err
	}
	buf, err := fileobj.Read(storagePath, v.crypto)
	if err != nil {
		return nil, newErr(KindCrypto, "read", err)
	}
	f := &File{vault: v, handle: v.allocHandle(), logicalPath: logicalPath, storagePath: storagePath, buf: buf}
	v.files[f.handle] = f
	return f, nil
}

// Read returns the decrypted content of a file opened with OpenFile.
func (f *File) Read() ([]byte, error) {
	if f.buf == nil {
		return nil, newErr(KindBadArgument, "read", fmt.Errorf("file was not opened for reading"))
	}
	out := make([]byte, len(f.buf.Bytes()))
	copy(out, f.buf.Bytes())
	return out, nil
}

// Write re-seals plaintext over the file object's current content.
func (f *File) Write(plaintext []byte) error {
	if err := fileobj.Write(f.storagePath, plaintext, f.vault.crypto); err != nil {
		return newErr(KindIO, "write", err)
	}
	return nil
}

// Close releases any decrypted buffer held by f and removes it from its
// Vault's handle table. It is idempotent.
func (f *File) Close() error {
	return f.closeLocked()
}

func (f *File) closeLocked() error {
	if f.buf != nil {
		f.buf.Free()
		f.buf = nil
	}
	if f.vault.files != nil {
		delete(f.vault.files, f.handle)
	}
	return nil
}

// DeleteFile removes the file object at logicalPath. Any handle already
// open on it is left dangling; the caller is responsible for not using
// it afterward.
func (v *Vault) DeleteFile(logicalPath string) error {
	if v.closed {
		return newErr(KindBadArgument, "rm", fmt.Errorf("vault is closed"))
	}
	storagePath, err := v.resolvePath(logicalPath)
	if err != nil {
		return err
	}
	if err := os.Remove(storagePath); err != nil {
		return newErr(KindIO, "rm", err)
	}
	return nil
}

// ReadFile opens, reads and closes the file object at logicalPath in
// one call, analogous to os.ReadFile.
func (v *Vault) ReadFile(logicalPath string) ([]byte, error) {
	f, err := v.OpenFile(logicalPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Read()
}

// WriteFile creates or overwrites the file object at logicalPath in one
// call, analogous to os.WriteFile.
func (v *Vault) WriteFile(logicalPath string, plaintext []byte) error {
	f, err := v.CreateFile(logicalPath, plaintext)
	if err != nil {
		return err
	}
	return f.Close()
}

// IterDir enumerates the logical directory at logicalPath, invoking fn
// once per entry. "." and ".." are synthesized first, matching the
// reference directory-iteration semantics; the metadata file and any
// dotfile are hidden, and entries whose stored name cannot be resolved
// back to a logical name are skipped rather than reported as an error,
// since enumeration must be able to tolerate a foreign file dropped into
// the vault directory out of band.
func (v *Vault) IterDir(logicalPath string, fn func(name string) error) error {
	if v.closed {
		return newErr(KindBadArgument, "iterdir", fmt.Errorf("vault is closed"))
	}
	dir, err := v.resolvePath(logicalPath)
	if err != nil {
		return err
	}
	key, err := v.crypto.GetKey()
	if err != nil {
		return newErr(KindCrypto, "iterdir", err)
	}

	if err := fn("."); err != nil {
		return err
	}
	if err := fn(".."); err != nil {
		return err
	}

	entries, err := readDirNames(dir)
	if err != nil {
		return newErr(KindIO, "iterdir", err)
	}
	for _, name := range entries {
		if strings.HasPrefix(name, ".") || name == storage.MetaFileName {
			continue
		}
		logical, err := pathresolver.ResolveVname(key, name)
		if err != nil {
			continue
		}
		if err := fn(logical); err != nil {
			return err
		}
	}
	return nil
}
