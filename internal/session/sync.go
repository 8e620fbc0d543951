package session

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/getaifs/vibefs/internal/gitadapter"
	"github.com/getaifs/vibefs/internal/metastore"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

// syncSessionToCommit brings a session's non-dirty inodes up to date
// with a new base commit after a successful Rebase: new upstream paths
// are added, upstream edits to paths the session hasn't touched are
// reflected, and upstream deletions of untouched paths remove the
// inode. Dirty paths are never touched — the session's own edits win,
// which is why Rebase refuses to proceed over a conflicting path
// without --force.
func syncSessionToCommit(ctx context.Context, store *metastore.Store, git *gitadapter.Adapter, oldBase, newBase plumbing.Hash) error {
	if err := populateFromCommit(ctx, store, git, newBase); err != nil {
		return err
	}

	changed, err := git.DiffPaths(oldBase, newBase)
	if err != nil {
		return err
	}

	dirtySet := map[string]bool{}
	dirtyPaths, err := store.GetDirtyPaths(ctx)
	if err != nil {
		return err
	}
	for _, p := range dirtyPaths {
		dirtySet[p] = true
	}

	for _, p := range changed {
		if dirtySet[p] {
			continue
		}

		id, existing, err := store.GetInodeByPath(ctx, p)
		notFound := errors.Is(err, vibeerr.ErrNotFound)
		if err != nil && !notFound {
			return err
		}

		data, existsAtNewBase, err := git.ReadFileAtCommit(newBase, p)
		if err != nil {
			return err
		}

		switch {
		case !existsAtNewBase && !notFound:
			if err := store.DeleteInode(ctx, id); err != nil {
				return err
			}
		case existsAtNewBase && !notFound && !existing.IsDir:
			oid := plumbing.ComputeHash(plumbing.BlobObject, data).String()
			existing.GitOID = &oid
			existing.Size = uint64(len(data))
			if err := store.PutInode(ctx, id, existing); err != nil {
				return err
			}
		}
	}
	return nil
}
