// Package metastore is the per-session metadata store: the
// inode-to-path-to-git-OID bookkeeping that lets the overlay engine
// answer "what does this path look like" without re-deriving it from
// the git object graph on every call. It is backed by
// github.com/dgraph-io/badger/v4, following the key-namespace-prefix
// convention dittofs's pkg/metadata/store/badger package uses
// (encoding.go builds keys, crud.go/dirty.go/clone.go hold one concern
// each, transactions are thin db.View/db.Update wrappers).
package metastore

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// Inode is the metadata VibeFS tracks for one file or directory in a
// session's overlay view, mirroring the original implementation's
// InodeMetadata field-for-field.
type Inode struct {
	Path     string  `json:"path"`
	GitOID   *string `json:"git_oid,omitempty"` // nil for untracked/new files
	IsDir    bool    `json:"is_dir"`
	Size     uint64  `json:"size"`
	Volatile bool    `json:"volatile"` // artifact-symlink or otherwise untracked
	Mtime    int64   `json:"mtime"`    // seconds since epoch, updated on write
}

// Store is one badger database: either the daemon's shared base store
// (read-only snapshot of HEAD) or a session's own store holding that
// session's inode table and dirty set.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a read-write metadata store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open metadata store %q: %v", vibeerr.ErrIO, path, err)
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens path without acquiring the writer lock, so a
// read-only caller can inspect a session's store concurrently with the
// daemon's own writer. The CLI's `status`/`diff` commands do not use it;
// they query the daemon over IPC.
func OpenReadOnly(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil).WithReadOnly(true)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open metadata store %q read-only: %v", vibeerr.ErrIO, path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close metadata store: %v", vibeerr.ErrIO, err)
	}
	return nil
}
