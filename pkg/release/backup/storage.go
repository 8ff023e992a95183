package backup

import (
	"context"
	"errors"
)

var (
	ErrSnapshotExists   = errors.New("snapshot already exists")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Storage is a write-once key/value store for snapshots.
// Put must fail with ErrSnapshotExists rather than replace an existing snapshot.
type Storage interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
