package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/moby/sys/atomicwriter"
	log "github.com/sirupsen/logrus"
)

// Store loads a manifest snapshot at the start of a release and persists the reconciled
// manifest at the end of it.
type Store interface {
	Load(ctx context.Context) (*Manifest, error)
	Persist(ctx context.Context, m *Manifest) error
}

type FileStore struct {
	Path string
}

var _ Store = &FileStore{}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load(ctx context.Context) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, s.Path)
	} else if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", s.Path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}

	log.Debugf("Loaded %d manifest entries from %s", len(m.Entries), s.Path)

	return m, nil
}

// Persist replaces the manifest file in one step. Readers observe either the old
// or the new file, never a partial write.
func (s *FileStore) Persist(ctx context.Context, m *Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := m.Encode()
	if err != nil {
		return err
	}

	perm := fs.FileMode(0o644)
	if info, err := os.Stat(s.Path); err == nil {
		perm = info.Mode().Perm()
	}

	err = atomicwriter.WriteFile(s.Path, data, perm)
	if err != nil {
		return fmt.Errorf("write manifest %s: %w", s.Path, err)
	}

	log.Debugf("Wrote %d bytes to %s", len(data), s.Path)

	return nil
}
