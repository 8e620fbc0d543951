package overlay

import (
	"context"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// Lookup resolves a (parent inode, name) pair to a child inode and its
// attributes, consulting the metadata store's path index rather than
// scanning the delta directory, so clean (git-only) entries are visible
// even when they have no presence on disk.
func (e *Engine) Lookup(ctx context.Context, parentID uint64, name string) (uint64, Attr, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	parent, err := e.store.GetInode(ctx, parentID)
	if err != nil {
		return 0, Attr{}, err
	}
	if !parent.IsDir {
		return 0, Attr{}, vibeerr.ErrUnsupported
	}

	childP := childPath(parent.Path, name)
	id, inode, err := e.store.GetInodeByPath(ctx, childP)
	if err != nil {
		return 0, Attr{}, err
	}
	return id, attrFromInode(id, inode, e.uid, e.gid), nil
}

// GetAttr returns an inode's current attributes.
func (e *Engine) GetAttr(ctx context.Context, inodeID uint64) (Attr, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	inode, err := e.store.GetInode(ctx, inodeID)
	if err != nil {
		return Attr{}, err
	}
	return attrFromInode(inodeID, inode, e.uid, e.gid), nil
}

// SetAttr is accepted but treated as best-effort: mode bits and
// ownership are synthesized, not stored, so there is nothing to apply.
// It returns the inode's current attributes unchanged.
func (e *Engine) SetAttr(ctx context.Context, inodeID uint64) (Attr, error) {
	return e.GetAttr(ctx, inodeID)
}
