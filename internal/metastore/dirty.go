package metastore

import (
	"context"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// MarkDirty records that path has been modified in this session relative
// to the base tree. Presence of the key is the signal; the value is empty.
func (s *Store) MarkDirty(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyDirty(path), []byte{})
	})
	if err != nil {
		return fmt.Errorf("%w: mark dirty %q: %v", vibeerr.ErrIO, path, err)
	}
	return nil
}

// ClearDirty removes the dirty marker for path, if any. Clearing a path
// that was never marked dirty is not an error.
func (s *Store) ClearDirty(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(keyDirty(path))
	})
	if err != nil {
		return fmt.Errorf("%w: clear dirty %q: %v", vibeerr.ErrIO, path, err)
	}
	return nil
}

// IsDirty reports whether path currently carries a dirty marker.
func (s *Store) IsDirty(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var dirty bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyDirty(path))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		dirty = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: check dirty %q: %v", vibeerr.ErrIO, path, err)
	}
	return dirty, nil
}

// GetDirtyPaths returns every path currently marked dirty, used to build
// the session's promote tree and the Diff/Status report.
func (s *Store) GetDirtyPaths(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var paths []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixDirty)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			key := string(it.Item().Key())
			paths = append(paths, strings.TrimPrefix(key, prefixDirty))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list dirty paths: %v", vibeerr.ErrIO, err)
	}
	return paths, nil
}

// ClearAllDirty removes every dirty marker, called by restore before it
// rescans the restored delta and re-marks what it finds.
func (s *Store) ClearAllDirty(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixDirty)
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: clear all dirty: %v", vibeerr.ErrIO, err)
	}
	return nil
}
