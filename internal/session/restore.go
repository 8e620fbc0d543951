package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/getaifs/vibefs/internal/metastore"
	"github.com/getaifs/vibefs/internal/overlay"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

// findSnapshot resolves a snapshot name to its directory, accepting
// either the bare label passed to Snapshot or the full
// "<session>_snapshot_<label>" directory name it produced.
func (m *Manager) findSnapshot(id, name string) (string, error) {
	candidates := []string{
		filepath.Join(m.sessionsDir, fmt.Sprintf("%s_snapshot_%s", id, name)),
		filepath.Join(m.sessionsDir, name),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: snapshot %q for session %q", vibeerr.ErrNotFound, name, id)
}

// Restore replaces a session's current delta directory with a copy of a
// prior snapshot, then rescans the restored tree and marks every
// regular file dirty (the snapshot may predate changes since made in
// git, so clean-vs-dirty can no longer be inferred from the overlay's
// absence). Unless backup is false, the current state is snapshotted
// first under the label "pre-restore-<backupLabel>".
func (m *Manager) Restore(ctx context.Context, id, snapshotName string, backup bool, backupLabel string) error {
	snapshotDir, err := m.findSnapshot(id, snapshotName)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: session %q", vibeerr.ErrNotFound, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if backup {
		backupDir := filepath.Join(m.sessionsDir, fmt.Sprintf("%s_snapshot_pre-restore-%s", id, backupLabel))
		if err := copyDirCOW(sess.Record.DeltaDir, backupDir); err != nil {
			return err
		}
	}

	wasExported := sess.Record.State == StateExported
	if err := m.unexport(ctx, sess); err != nil {
		return err
	}

	if err := os.RemoveAll(sess.Record.DeltaDir); err != nil {
		return fmt.Errorf("%w: remove delta directory %q: %v", vibeerr.ErrIO, sess.Record.DeltaDir, err)
	}
	if err := copyDirCOW(snapshotDir, sess.Record.DeltaDir); err != nil {
		return err
	}

	if err := m.rescanAndReexport(ctx, sess, wasExported); err != nil {
		return err
	}
	return m.saveRecord(sess.Record)
}

// rescanAndReexport reopens a session's metadata store from its
// (possibly just-restored) delta directory, clears and rebuilds dirty
// tracking by walking the tree, and — if wasExported — rebinds an NFS
// server over a fresh overlay engine. Callers must hold sess.mu.
func (m *Manager) rescanAndReexport(ctx context.Context, sess *Session, wasExported bool) error {
	storePath := filepath.Join(sess.Record.DeltaDir, "metadata.db")
	store, err := metastore.Open(storePath)
	if err != nil {
		return err
	}

	if err := store.ClearAllDirty(ctx); err != nil {
		store.Close()
		return err
	}
	if err := markRegularFilesDirty(ctx, store, sess.Record.DeltaDir); err != nil {
		store.Close()
		return err
	}

	sess.store = store
	sess.Record.State = StateUnexported

	if !wasExported {
		return nil
	}

	engine, err := overlay.New(store, m.git, sess.baseCommitHash(), sess.Record.DeltaDir, m.uid, m.gid)
	if err != nil {
		return err
	}
	server, err := m.newServer(sess.Record.ID, engine)
	if err != nil {
		return fmt.Errorf("bind NFS server for session %q: %w", sess.Record.ID, err)
	}

	sess.engine = engine
	sess.server = server
	sess.Record.NFSPort = server.Port()
	sess.Record.State = StateExported
	return nil
}

// markRegularFilesDirty walks root and marks every regular file (not
// directories, not artifact symlinks) dirty by its path relative to
// root, so a restored overlay is diffed and promoted in full.
func markRegularFilesDirty(ctx context.Context, store *metastore.Store, root string) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == root || filepath.Base(p) == "metadata.db" {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 || info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		return store.MarkDirty(ctx, filepath.ToSlash(rel))
	})
}
