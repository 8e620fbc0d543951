package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/getaifs/vibefs/internal/overlay"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

// Spawn exports a session: if one already exists under id, it returns
// the existing record (idempotent). Otherwise it clones the base
// metadata store, materializes artifact symlinks, captures HEAD as the
// base commit, binds an NFS server, and persists the session record.
func (m *Manager) Spawn(ctx context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[id]; ok {
		return sess.Record, nil
	}

	deltaDir := m.sessionDeltaDir(id)
	mountPoint := m.sessionMountPoint(id)
	for _, dir := range []string{deltaDir, mountPoint} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Record{}, fmt.Errorf("%w: create %q: %v", vibeerr.ErrIO, dir, err)
		}
	}

	storePath := filepath.Join(deltaDir, "metadata.db")
	store, err := m.baseStore.CloneTo(ctx, storePath)
	if err != nil {
		return Record{}, fmt.Errorf("clone base metadata store for session %q: %w", id, err)
	}

	if err := materializeArtifactSymlinks(ctx, store, deltaDir, id, m.artifactDirs); err != nil {
		store.Close()
		return Record{}, err
	}

	baseCommit, err := m.git.HeadCommit()
	if err != nil {
		store.Close()
		return Record{}, err
	}

	engine, err := overlay.New(store, m.git, baseCommit, deltaDir, m.uid, m.gid)
	if err != nil {
		store.Close()
		return Record{}, err
	}

	server, err := m.newServer(id, engine)
	if err != nil {
		store.Close()
		return Record{}, fmt.Errorf("bind NFS server for session %q: %w", id, err)
	}

	record := Record{
		ID:         id,
		BaseCommit: baseCommit.String(),
		DeltaDir:   deltaDir,
		MountPoint: mountPoint,
		NFSPort:    server.Port(),
		CreatedAt:  now(),
		State:      StateExported,
	}
	if err := m.saveRecord(record); err != nil {
		server.Stop(ctx)
		store.Close()
		return Record{}, err
	}

	m.sessions[id] = &Session{
		Record: record,
		store:  store,
		engine: engine,
		server: server,
	}
	return record, nil
}

// now is the single indirection point for wall-clock reads in this
// package, so tests can observe deterministic timestamps if needed.
var now = func() time.Time { return time.Now() }
