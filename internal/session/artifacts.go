package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/getaifs/vibefs/internal/metastore"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

const symlinkOIDPrefix = "symlink:"

// artifactsScratchRoot is where a session's artifact directories actually
// live on disk, outside the overlay, so build tools never touch the
// delta directory (and so their writes are never committed or diffed).
func artifactsScratchRoot(sessionID string) string {
	return filepath.Join(os.TempDir(), "vibe-artifacts", sessionID)
}

// materializeArtifactSymlinks creates a symlink inside deltaDir for each
// configured artifact directory name, pointing at a per-session scratch
// path, and registers each as a volatile inode. If a stale inode for the
// name was inherited from the cloned template (pointing at a different
// session's scratch path), it is rewritten.
func materializeArtifactSymlinks(ctx context.Context, store *metastore.Store, deltaDir, sessionID string, artifactDirs []string) error {
	scratchRoot := artifactsScratchRoot(sessionID)

	for _, name := range artifactDirs {
		target := filepath.Join(scratchRoot, name)
		linkPath := filepath.Join(deltaDir, name)

		if _, err := os.Lstat(linkPath); os.IsNotExist(err) {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: create artifact scratch dir %q: %v", vibeerr.ErrIO, target, err)
			}
			if err := os.Symlink(target, linkPath); err != nil {
				return fmt.Errorf("%w: create artifact symlink %q -> %q: %v", vibeerr.ErrIO, linkPath, target, err)
			}
		} else if err != nil {
			return fmt.Errorf("%w: stat artifact symlink %q: %v", vibeerr.ErrIO, linkPath, err)
		}

		expectedOID := symlinkOIDPrefix + target
		id, existing, err := store.GetInodeByPath(ctx, name)
		switch {
		case err == nil:
			if existing.GitOID == nil || *existing.GitOID != expectedOID {
				oid := expectedOID
				existing.GitOID = &oid
				existing.Size = uint64(len(target))
				existing.Volatile = true
				existing.IsDir = false
				if err := store.PutInode(ctx, id, existing); err != nil {
					return err
				}
			}
		case errors.Is(err, vibeerr.ErrNotFound):
			newID, err := store.NextInodeID(ctx)
			if err != nil {
				return err
			}
			oid := expectedOID
			inode := &metastore.Inode{Path: name, GitOID: &oid, Size: uint64(len(target)), Volatile: true}
			if err := store.PutInode(ctx, newID, inode); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}
