package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/getaifs/vibefs/internal/overlay"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

// ResetHard discards every change a session has made and returns it to
// a clean overlay of its base commit: the delta directory (including
// its cloned metadata store) is wiped and rebuilt from the shared base
// store, and artifact symlinks are re-materialized. The session's base
// commit is left unchanged. Unless backup is false, the current state
// is snapshotted first under the label "pre-reset-<backupLabel>".
func (m *Manager) ResetHard(ctx context.Context, id string, backup bool, backupLabel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: session %q", vibeerr.ErrNotFound, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if backup {
		backupDir := filepath.Join(m.sessionsDir, fmt.Sprintf("%s_snapshot_pre-reset-%s", id, backupLabel))
		if err := copyDirCOW(sess.Record.DeltaDir, backupDir); err != nil {
			return err
		}
	}

	wasExported := sess.Record.State == StateExported
	if err := m.unexport(ctx, sess); err != nil {
		return err
	}

	entries, err := os.ReadDir(sess.Record.DeltaDir)
	if err != nil {
		return fmt.Errorf("%w: list delta directory %q: %v", vibeerr.ErrIO, sess.Record.DeltaDir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(sess.Record.DeltaDir, e.Name())); err != nil {
			return fmt.Errorf("%w: remove %q: %v", vibeerr.ErrIO, e.Name(), err)
		}
	}

	storePath := filepath.Join(sess.Record.DeltaDir, "metadata.db")
	store, err := m.baseStore.CloneTo(ctx, storePath)
	if err != nil {
		return fmt.Errorf("re-clone base metadata store for session %q: %w", id, err)
	}
	if err := materializeArtifactSymlinks(ctx, store, sess.Record.DeltaDir, id, m.artifactDirs); err != nil {
		store.Close()
		return err
	}

	sess.store = store
	sess.Record.State = StateUnexported

	if wasExported {
		engine, err := overlay.New(store, m.git, sess.baseCommitHash(), sess.Record.DeltaDir, m.uid, m.gid)
		if err != nil {
			return err
		}
		server, err := m.newServer(id, engine)
		if err != nil {
			return fmt.Errorf("bind NFS server for session %q: %w", id, err)
		}
		sess.engine = engine
		sess.server = server
		sess.Record.NFSPort = server.Port()
		sess.Record.State = StateExported
	}

	return m.saveRecord(sess.Record)
}
