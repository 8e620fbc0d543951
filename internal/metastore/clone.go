package metastore

import (
	"context"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// CloneTo copies this store's entire inode table and inode counter into
// a fresh store at destPath, used when a session spawns off the
// daemon's base metadata store. It is idempotent: if destPath already
// holds a store, it is opened as-is rather than overwritten.
func (s *Store) CloneTo(ctx context.Context, destPath string) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(destPath); err == nil {
		return Open(destPath)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: stat clone destination %q: %v", vibeerr.ErrIO, destPath, err)
	}

	dest, err := Open(destPath)
	if err != nil {
		return nil, err
	}

	inodes, err := s.GetAllInodes(ctx)
	if err != nil {
		dest.Close()
		return nil, err
	}
	for id, inode := range inodes {
		if err := dest.PutInode(ctx, id, inode); err != nil {
			dest.Close()
			return nil, err
		}
	}

	counter, err := s.rawGet([]byte(keyInodeCount))
	if err != nil {
		dest.Close()
		return nil, err
	}
	if counter != nil {
		if err := dest.rawPut([]byte(keyInodeCount), counter); err != nil {
			dest.Close()
			return nil, err
		}
	}

	return dest, nil
}

func (s *Store) rawGet(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read key %q: %v", vibeerr.ErrIO, key, err)
	}
	return value, nil
}

func (s *Store) rawPut(key, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("%w: write key %q: %v", vibeerr.ErrIO, key, err)
	}
	return nil
}
