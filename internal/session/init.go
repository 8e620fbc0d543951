package session

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/getaifs/vibefs/internal/gitadapter"
	"github.com/getaifs/vibefs/internal/metastore"
	"github.com/getaifs/vibefs/internal/overlay"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

// populateFromCommit seeds store with the root inode plus one inode per
// blob reachable from commit's tree, and one inode per intermediate
// directory — the data model's initialize step: "one inode per file
// whose git_oid equals the file's blob OID at C0". Lookup only ever
// consults the metadata store's path index, so every Git-tracked path
// must have an inode before it can be resolved.
func populateFromCommit(ctx context.Context, store *metastore.Store, git *gitadapter.Adapter, commit plumbing.Hash) error {
	if _, err := store.GetInode(ctx, overlay.RootInodeID); err != nil {
		if !errors.Is(err, vibeerr.ErrNotFound) {
			return err
		}
		if err := store.PutInode(ctx, overlay.RootInodeID, &metastore.Inode{Path: "", IsDir: true}); err != nil {
			return fmt.Errorf("initialize root inode: %w", err)
		}
	}

	if commit == plumbing.ZeroHash {
		return nil
	}

	entries, err := git.ListTreeRecursive(commit)
	if err != nil {
		return err
	}

	knownDirs := map[string]bool{"": true}
	var ensureDir func(dirPath string) error
	ensureDir = func(dirPath string) error {
		if knownDirs[dirPath] {
			return nil
		}
		if _, _, err := store.GetInodeByPath(ctx, dirPath); err == nil {
			knownDirs[dirPath] = true
			return nil
		} else if !errors.Is(err, vibeerr.ErrNotFound) {
			return err
		}

		if err := ensureDir(parentOfPath(dirPath)); err != nil {
			return err
		}
		id, err := store.NextInodeID(ctx)
		if err != nil {
			return err
		}
		if err := store.PutInode(ctx, id, &metastore.Inode{Path: dirPath, IsDir: true}); err != nil {
			return err
		}
		knownDirs[dirPath] = true
		return nil
	}

	for _, entry := range entries {
		if _, _, err := store.GetInodeByPath(ctx, entry.Path); err == nil {
			continue
		} else if !errors.Is(err, vibeerr.ErrNotFound) {
			return err
		}

		if err := ensureDir(parentOfPath(entry.Path)); err != nil {
			return err
		}

		data, err := git.ReadBlob(entry.OID)
		if err != nil {
			return err
		}

		id, err := store.NextInodeID(ctx)
		if err != nil {
			return err
		}
		oid := entry.OID.String()
		inode := &metastore.Inode{Path: entry.Path, GitOID: &oid, Size: uint64(len(data))}
		if err := store.PutInode(ctx, id, inode); err != nil {
			return err
		}
	}
	return nil
}

func parentOfPath(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}
