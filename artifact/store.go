// Package artifact provides a filesystem blob store for run outputs and
// generated test text.
package artifact

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/testforge/testforge/errors"
)

// Store persists opaque named blobs on the local filesystem.
// IDs are opaque: a random hex string plus the caller-supplied suffix,
// so stored generation output keeps its extension (e.g. ".txt").
type Store struct {
	dir string
}

// NewStore creates a blob store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create artifact dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

// SaveBytes writes data under a fresh id and returns the id.
func (s *Store) SaveBytes(data []byte, suffix string) (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "") + suffix
	if err := os.WriteFile(filepath.Join(s.dir, id), data, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write artifact %s", id)
	}
	return id, nil
}

// Path returns the filesystem path for an artifact id.
// Returns ErrNotFound if the artifact does not exist.
func (s *Store) Path(id string) (string, error) {
	// Reject traversal attempts; ids are flat names
	if id != filepath.Base(id) {
		return "", errors.NewNotFoundError("artifact not found: %s", id)
	}
	p := filepath.Join(s.dir, id)
	if _, err := os.Stat(p); err != nil {
		return "", errors.NewNotFoundError("artifact not found: %s", id)
	}
	return p, nil
}

// Open opens an artifact for reading.
// Returns ErrNotFound if the artifact does not exist.
func (s *Store) Open(id string) (*os.File, error) {
	p, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open artifact %s", id)
	}
	return f, nil
}
