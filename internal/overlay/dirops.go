package overlay

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/getaifs/vibefs/internal/metastore"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

// create allocates a new inode under parentID named name, and makes an
// empty file or directory for it on disk inside the delta directory.
// Directories never carry a GitOID.
func (e *Engine) create(ctx context.Context, parentID uint64, name string, isDir bool, now int64) (uint64, Attr, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	parent, err := e.store.GetInode(ctx, parentID)
	if err != nil {
		return 0, Attr{}, err
	}
	if !parent.IsDir {
		return 0, Attr{}, vibeerr.ErrUnsupported
	}

	p := childPath(parent.Path, name)
	if _, _, err := e.store.GetInodeByPath(ctx, p); err == nil {
		return 0, Attr{}, vibeerr.ErrAlreadyExists
	}

	dest := e.deltaPath(p)
	if isDir {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return 0, Attr{}, fmt.Errorf("%w: mkdir %q: %v", vibeerr.ErrIO, p, err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return 0, Attr{}, fmt.Errorf("%w: create parent dir for %q: %v", vibeerr.ErrIO, p, err)
		}
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, Attr{}, fmt.Errorf("%w: create %q: %v", vibeerr.ErrIO, p, err)
		}
		f.Close()
	}

	id, err := e.store.NextInodeID(ctx)
	if err != nil {
		return 0, Attr{}, err
	}
	inode := &metastore.Inode{Path: p, IsDir: isDir, Mtime: now}
	if err := e.store.PutInode(ctx, id, inode); err != nil {
		return 0, Attr{}, err
	}

	return id, attrFromInode(id, inode, e.uid, e.gid), nil
}

// Create makes a new empty regular file.
func (e *Engine) Create(ctx context.Context, parentID uint64, name string, now int64) (uint64, Attr, error) {
	return e.create(ctx, parentID, name, false, now)
}

// Mkdir makes a new empty directory.
func (e *Engine) Mkdir(ctx context.Context, parentID uint64, name string, now int64) (uint64, Attr, error) {
	return e.create(ctx, parentID, name, true, now)
}

// Remove deletes the inode named by (parentID, name) from both metadata
// mappings and, if present, from the delta directory. The path is not
// marked dirty: absence of the inode plus absence of a git reference at
// promote time is itself the record of a deletion.
func (e *Engine) Remove(ctx context.Context, parentID uint64, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	parent, err := e.store.GetInode(ctx, parentID)
	if err != nil {
		return err
	}

	p := childPath(parent.Path, name)
	id, _, err := e.store.GetInodeByPath(ctx, p)
	if err != nil {
		return err
	}

	if err := e.store.DeleteInode(ctx, id); err != nil {
		return err
	}

	if err := os.Remove(e.deltaPath(p)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove delta file %q: %v", vibeerr.ErrIO, p, err)
	}
	return nil
}

// Readdir returns the directory's own entries plus "." and "..". It
// scans the whole inode table for inodes whose path has dirID's path as
// immediate parent; the reverse path index is used only to resolve "..".
// The order of the returned entries is not defined.
func (e *Engine) Readdir(ctx context.Context, dirID uint64) ([]DirEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	dir, err := e.store.GetInode(ctx, dirID)
	if err != nil {
		return nil, err
	}
	if !dir.IsDir {
		return nil, vibeerr.ErrUnsupported
	}

	entries := []DirEntry{
		{InodeID: dirID, Name: ".", Type: NodeDir},
	}
	parentID := dirID
	if dirID != RootInodeID {
		pid, _, err := e.store.GetInodeByPath(ctx, parentOf(dir.Path))
		if err == nil {
			parentID = pid
		}
	}
	entries = append(entries, DirEntry{InodeID: parentID, Name: "..", Type: NodeDir})

	all, err := e.store.GetAllInodes(ctx)
	if err != nil {
		return nil, err
	}
	for id, inode := range all {
		if id == RootInodeID || inode.Path == "" {
			continue
		}
		if parentOf(inode.Path) != dir.Path {
			continue
		}
		typ := NodeFile
		if inode.IsDir {
			typ = NodeDir
		}
		entries = append(entries, DirEntry{InodeID: id, Name: path.Base(inode.Path), Type: typ})
	}
	return entries, nil
}
