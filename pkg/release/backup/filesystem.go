package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type filesystemStorage struct {
	dir string
}

// NewFilesystemStorage stores snapshots as files below dir.
func NewFilesystemStorage(dir string) Storage {
	return &filesystemStorage{dir: dir}
}

func (s *filesystemStorage) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

func (s *filesystemStorage) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrSnapshotExists, key)
	} else if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	_, err = file.Write(data)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write snapshot: %w", err)
	}

	return nil
}

func (s *filesystemStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
	}
	return data, err
}
