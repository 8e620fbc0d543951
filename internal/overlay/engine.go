// Package overlay implements VibeFS's session-overlay filesystem engine:
// it fuses a read-only view of Git blobs at a session's base commit with
// a session-local delta directory that holds exactly the files whose
// bytes differ from that base, tracked via the metadata store's dirty
// set. Exposed to the NFS server as the narrow FileSystem interface, so
// the wire layer never imports metastore/gitadapter types directly.
package overlay

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/getaifs/vibefs/internal/gitadapter"
	"github.com/getaifs/vibefs/internal/metastore"
)

// RootInodeID is always 1, per the data model's invariant that the root
// inode exists and IDs are never reused.
const RootInodeID uint64 = 1

// Engine is one session's overlay: its metadata store, a shared handle
// on the git adapter, the session's base commit, and the delta directory
// on the host filesystem.
type Engine struct {
	store      *metastore.Store
	git        *gitadapter.Adapter
	baseCommit plumbing.Hash
	deltaDir   string
	uid        uint32
	gid        uint32

	// mu guards the sequence "read inode, mutate overlay, write inode"
	// so two concurrent requests against the same session serialize
	// their metadata-store view; bytes on disk are serialized by the
	// host filesystem's own write/rename atomicity.
	mu sync.RWMutex
}

// New constructs an Engine over an already-cloned session metadata store,
// ensuring the root inode exists.
func New(store *metastore.Store, git *gitadapter.Adapter, baseCommit plumbing.Hash, deltaDir string, uid, gid uint32) (*Engine, error) {
	e := &Engine{store: store, git: git, baseCommit: baseCommit, deltaDir: deltaDir, uid: uid, gid: gid}

	ctx := context.Background()
	if _, err := store.GetInode(ctx, RootInodeID); err != nil {
		root := &metastore.Inode{Path: "", IsDir: true}
		if err := store.PutInode(ctx, RootInodeID, root); err != nil {
			return nil, fmt.Errorf("initialize root inode: %w", err)
		}
	}
	return e, nil
}

// childPath composes a repo-relative path from a parent directory's path
// and a child name, special-casing the root (whose path is "").
func childPath(parentPath, name string) string {
	if parentPath == "" {
		return name
	}
	return parentPath + "/" + name
}

// parentOf returns the repo-relative path of p's parent directory,
// special-casing top-level entries (parent is root, path "").
func parentOf(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// deltaPath returns the absolute host path where p would live inside the
// session's delta directory.
func (e *Engine) deltaPath(p string) string {
	if p == "" {
		return e.deltaDir
	}
	return path.Join(e.deltaDir, p)
}
