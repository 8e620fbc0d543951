package overlay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// Write implements the spec's write resolution: load the current full
// content (zero-extending past EOF), splice the incoming bytes at
// offset, atomically replace the delta file, mark the path dirty, and
// update the inode's size and mtime.
func (e *Engine) Write(ctx context.Context, inodeID uint64, offset int64, data []byte, now int64) (Attr, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inode, err := e.store.GetInode(ctx, inodeID)
	if err != nil {
		return Attr{}, err
	}
	if inode.IsDir {
		return Attr{}, fmt.Errorf("%w: write to directory %q", vibeerr.ErrUnsupported, inode.Path)
	}

	var buf []byte
	if offset == 0 && len(data) == 0 {
		buf = nil
	} else {
		buf, err = e.readFull(ctx, inode)
		if err != nil {
			return Attr{}, err
		}
	}

	needed := offset + int64(len(data))
	if needed > int64(len(buf)) {
		grown := make([]byte, needed)
		copy(grown, buf)
		buf = grown
	}
	copy(buf[offset:], data)

	dest := e.deltaPath(inode.Path)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Attr{}, fmt.Errorf("%w: create parent dir for %q: %v", vibeerr.ErrIO, inode.Path, err)
	}
	if err := atomicWriteFile(dest, buf); err != nil {
		return Attr{}, fmt.Errorf("%w: write delta file %q: %v", vibeerr.ErrIO, inode.Path, err)
	}

	if err := e.store.MarkDirty(ctx, inode.Path); err != nil {
		return Attr{}, err
	}
	inode.Size = uint64(len(buf))
	inode.Mtime = now
	if err := e.store.PutInode(ctx, inodeID, inode); err != nil {
		return Attr{}, err
	}

	return attrFromInode(inodeID, inode, e.uid, e.gid), nil
}

// atomicWriteFile writes data to a temp file in the same directory as
// path, then renames it into place, relying on the host filesystem's
// rename atomicity rather than an in-place write.
func atomicWriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vibefs-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
