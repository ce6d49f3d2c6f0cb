// Package fsutil holds the small durability helpers used by the
// file-object codec: fsync-the-parent-directory and
// write-to-temp-then-rename. The metadata codec in internal/storage does
// its own O_EXCL create and parent-directory fsync instead.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// FsyncDir opens and fsyncs the parent directory of path, making a
// preceding create/rename durable against a crash.
func FsyncDir(path string) error {
	dir := filepath.Dir(path)
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir %s for fsync: %w", dir, err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("fsync dir %s: %w", dir, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file beside path, fsyncs it,
// renames it over path, then fsyncs the parent directory. This is the
// write discipline for file objects; metadata files use O_EXCL instead,
// since init must never silently overwrite an existing vault.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file into place: %w", err)
	}
	return FsyncDir(path)
}
