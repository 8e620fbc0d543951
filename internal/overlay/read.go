package overlay

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/getaifs/vibefs/internal/metastore"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

const symlinkOIDPrefix = "symlink:"

// readFull returns the inode's current full content: from the delta
// directory if the path is dirty, otherwise from the git blob named by
// its GitOID. A path with no GitOID and no dirty marker is a newly
// created, still-empty file.
func (e *Engine) readFull(ctx context.Context, inode *metastore.Inode) ([]byte, error) {
	dirty, err := e.store.IsDirty(ctx, inode.Path)
	if err != nil {
		return nil, err
	}
	if dirty {
		data, err := os.ReadFile(e.deltaPath(inode.Path))
		if os.IsNotExist(err) {
			// dirty + absent means "deleted" everywhere except here: a
			// caller reading a deleted file's bytes gets nothing.
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read delta file %q: %v", vibeerr.ErrIO, inode.Path, err)
		}
		return data, nil
	}

	if inode.GitOID == nil {
		return nil, nil
	}
	if strings.HasPrefix(*inode.GitOID, symlinkOIDPrefix) {
		return nil, fmt.Errorf("%w: read artifact symlink %q directly", vibeerr.ErrUnsupported, inode.Path)
	}

	return e.git.ReadBlob(plumbing.NewHash(*inode.GitOID))
}

// Read implements the spec's read resolution: locate the inode, resolve
// its full content, then slice to [offset, offset+count), clipping at
// EOF and reporting whether the slice reached the end of the file.
func (e *Engine) Read(ctx context.Context, inodeID uint64, offset int64, count int) ([]byte, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	inode, err := e.store.GetInode(ctx, inodeID)
	if err != nil {
		return nil, false, err
	}

	data, err := e.readFull(ctx, inode)
	if err != nil {
		return nil, false, err
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= int64(len(data)) {
		return nil, true, nil
	}

	end := offset + int64(count)
	eof := false
	if end >= int64(len(data)) {
		end = int64(len(data))
		eof = true
	}
	return data[offset:end], eof, nil
}
