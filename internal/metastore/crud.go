package metastore

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// PutInode stores inode metadata under id, updating both the forward
// (inode -> metadata) and reverse (path -> inode id) mappings in one
// transaction.
func (s *Store) PutInode(ctx context.Context, id uint64, inode *Inode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := encodeInode(inode)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(keyInode(id), value); err != nil {
			return err
		}
		return txn.Set(keyPath(inode.Path), encodeInodeID(id))
	})
	if err != nil {
		return fmt.Errorf("%w: put inode %d: %v", vibeerr.ErrIO, id, err)
	}
	return nil
}

// GetInode returns the metadata stored for id.
func (s *Store) GetInode(ctx context.Context, id uint64) (*Inode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var inode *Inode
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyInode(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := decodeInode(val)
			if err != nil {
				return err
			}
			inode = decoded
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("%w: inode %d", vibeerr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get inode %d: %v", vibeerr.ErrIO, id, err)
	}
	return inode, nil
}

// GetInodeByPath resolves path to its inode id and metadata.
func (s *Store) GetInodeByPath(ctx context.Context, path string) (uint64, *Inode, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	var id uint64
	var inode *Inode
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyPath(path))
		if err != nil {
			return err
		}
		var idBytes []byte
		idBytes, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err = decodeInodeID(idBytes)
		if err != nil {
			return err
		}

		inodeItem, err := txn.Get(keyInode(id))
		if err != nil {
			return err
		}
		return inodeItem.Value(func(val []byte) error {
			decoded, err := decodeInode(val)
			if err != nil {
				return err
			}
			inode = decoded
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return 0, nil, fmt.Errorf("%w: path %q", vibeerr.ErrNotFound, path)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("%w: get inode by path %q: %v", vibeerr.ErrIO, path, err)
	}
	return id, inode, nil
}

// DeleteInode removes both the forward and reverse mapping for id.
func (s *Store) DeleteInode(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyInode(id))
		if err != nil {
			return err
		}
		var inode *Inode
		if err := item.Value(func(val []byte) error {
			decoded, err := decodeInode(val)
			if err != nil {
				return err
			}
			inode = decoded
			return nil
		}); err != nil {
			return err
		}

		if err := txn.Delete(keyInode(id)); err != nil {
			return err
		}
		return txn.Delete(keyPath(inode.Path))
	})
	if err == badger.ErrKeyNotFound {
		return fmt.Errorf("%w: inode %d", vibeerr.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%w: delete inode %d: %v", vibeerr.ErrIO, id, err)
	}
	return nil
}

// RenameInode updates the path mappings for id from oldPath to newPath,
// and carries the dirty marker across if oldPath was dirty.
func (s *Store) RenameInode(ctx context.Context, id uint64, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyInode(id))
		if err != nil {
			return err
		}
		var inode *Inode
		if err := item.Value(func(val []byte) error {
			decoded, err := decodeInode(val)
			if err != nil {
				return err
			}
			inode = decoded
			return nil
		}); err != nil {
			return err
		}

		inode.Path = newPath
		value, err := encodeInode(inode)
		if err != nil {
			return err
		}
		if err := txn.Set(keyInode(id), value); err != nil {
			return err
		}
		if err := txn.Delete(keyPath(oldPath)); err != nil {
			return err
		}
		if err := txn.Set(keyPath(newPath), encodeInodeID(id)); err != nil {
			return err
		}

		_, err = txn.Get(keyDirty(oldPath))
		if err == nil {
			if err := txn.Delete(keyDirty(oldPath)); err != nil {
				return err
			}
			if err := txn.Set(keyDirty(newPath), []byte{}); err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: rename inode %d: %v", vibeerr.ErrIO, id, err)
	}
	return nil
}

// NextInodeID allocates and returns the next monotonically increasing
// inode id, starting at firstInodeID.
func (s *Store) NextInodeID(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var next uint64
	err := s.db.Update(func(txn *badger.Txn) error {
		current := firstInodeID
		item, err := txn.Get([]byte(keyInodeCount))
		switch {
		case err == nil:
			idBytes, copyErr := item.ValueCopy(nil)
			if copyErr != nil {
				return copyErr
			}
			current, err = decodeInodeID(idBytes)
			if err != nil {
				return err
			}
		case err == badger.ErrKeyNotFound:
			// first allocation, current already seeded above
		default:
			return err
		}

		next = current
		return txn.Set([]byte(keyInodeCount), encodeInodeID(current+1))
	})
	if err != nil {
		return 0, fmt.Errorf("%w: allocate inode id: %v", vibeerr.ErrIO, err)
	}
	return next, nil
}

// GetAllInodes returns every inode currently tracked, for CloneTo and
// for the overlay's Readdir.
func (s *Store) GetAllInodes(ctx context.Context) (map[uint64]*Inode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make(map[uint64]*Inode)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixInode)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			var id uint64
			if _, err := fmt.Sscanf(string(item.Key()), prefixInode+"%d", &id); err != nil {
				return fmt.Errorf("malformed inode key %q: %w", item.Key(), err)
			}
			err := item.Value(func(val []byte) error {
				inode, err := decodeInode(val)
				if err != nil {
					return err
				}
				result[id] = inode
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list inodes: %v", vibeerr.ErrIO, err)
	}
	return result, nil
}
