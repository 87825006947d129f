// Package blob persists uploaded files (message attachments, avatars) on
// disk under unique names and hands back stable relative paths. Files are
// synced before the path is returned, so a referencing database row is only
// ever committed after its blob is durable.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store writes blobs under a single base directory.
type Store struct {
	dir string
}

// New creates the base directory if needed and returns a store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the base directory, for static serving.
func (s *Store) Dir() string {
	return s.dir
}

// Save stores the reader's contents under "<prefix><uuid><ext>" where ext is
// taken from origName, and returns the path relative to the base directory's
// parent (e.g. "uploads/abc.png"). The file is fsynced before returning.
func (s *Store) Save(r io.Reader, prefix, origName string) (string, error) {
	name := prefix + uuid.New().String() + filepath.Ext(origName)
	fullPath := filepath.Join(s.dir, name)

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create blob file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("write blob: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("sync blob: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close blob: %w", err)
	}

	return filepath.Join(filepath.Base(s.dir), name), nil
}
