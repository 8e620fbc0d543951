package session

import (
	"context"
	"fmt"
	"os"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// unexport stops a session's NFS server without destroying its data,
// used both by Close and internally by Restore/ResetHard. Callers must
// hold m.mu.
func (m *Manager) unexport(ctx context.Context, sess *Session) error {
	if sess.server != nil {
		if err := sess.server.Stop(ctx); err != nil {
			return fmt.Errorf("stop NFS server for session %q: %w", sess.Record.ID, err)
		}
		sess.server = nil
	}
	if sess.store != nil {
		if err := sess.store.Close(); err != nil {
			return err
		}
		sess.store = nil
	}
	sess.Record.State = StateUnexported
	return nil
}

// Close unexports a session, removes its delta directory, and removes
// its sidecar record. It transitions from any state to Absent.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: session %q", vibeerr.ErrNotFound, id)
	}

	if err := m.unexport(ctx, sess); err != nil {
		return err
	}

	if err := os.RemoveAll(sess.Record.DeltaDir); err != nil {
		return fmt.Errorf("%w: remove delta directory %q: %v", vibeerr.ErrIO, sess.Record.DeltaDir, err)
	}
	if err := os.RemoveAll(sess.Record.MountPoint); err != nil {
		return fmt.Errorf("%w: remove mount point %q: %v", vibeerr.ErrIO, sess.Record.MountPoint, err)
	}
	if err := m.removeRecord(id); err != nil {
		return err
	}

	delete(m.sessions, id)
	return nil
}
