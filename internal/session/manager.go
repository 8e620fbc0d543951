package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/getaifs/vibefs/internal/gitadapter"
	"github.com/getaifs/vibefs/internal/logger"
	"github.com/getaifs/vibefs/internal/metastore"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

// Manager owns the daemon's shared resources — the base metadata store
// and git adapter — and the table of live sessions spawned against them.
type Manager struct {
	repoRoot     string
	vibeDir      string
	sessionsDir  string
	mountsDir    string
	artifactDirs []string
	uid, gid     uint32

	baseStore *metastore.Store
	git       *gitadapter.Adapter
	newServer ServerFactory

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New constructs a Manager rooted at repoRoot (the directory containing
// .vibe), opening the base metadata store and git adapter. If the base
// store has never been initialized, it is seeded with one inode per
// path in HEAD's tree — the data model's "initialize" step — before
// New returns, so every subsequent Spawn clones a fully populated store.
func New(ctx context.Context, repoRoot string, artifactDirs []string, newServer ServerFactory) (*Manager, error) {
	vibeDir := filepath.Join(repoRoot, ".vibe")
	sessionsDir := filepath.Join(vibeDir, "sessions")
	mountsDir := filepath.Join(vibeDir, "mounts")

	for _, dir := range []string{vibeDir, sessionsDir, mountsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %q: %v", vibeerr.ErrIO, dir, err)
		}
	}

	baseStore, err := metastore.Open(filepath.Join(vibeDir, "metadata.db"))
	if err != nil {
		return nil, err
	}

	git, err := gitadapter.Open(repoRoot)
	if err != nil {
		baseStore.Close()
		return nil, err
	}

	headCommit, err := git.HeadCommit()
	if err != nil {
		baseStore.Close()
		return nil, err
	}
	if err := populateFromCommit(ctx, baseStore, git, headCommit); err != nil {
		baseStore.Close()
		return nil, fmt.Errorf("initialize base metadata store: %w", err)
	}

	return &Manager{
		repoRoot:     repoRoot,
		vibeDir:      vibeDir,
		sessionsDir:  sessionsDir,
		mountsDir:    mountsDir,
		artifactDirs: artifactDirs,
		uid:          uint32(os.Getuid()),
		gid:          uint32(os.Getgid()),
		baseStore:    baseStore,
		git:          git,
		newServer:    newServer,
		sessions:     make(map[string]*Session),
	}, nil
}

// Shutdown stops every live session's NFS server and closes the base
// store, used when the daemon itself is exiting.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, sess := range m.sessions {
		if sess.server != nil {
			if err := sess.server.Stop(ctx); err != nil {
				logger.Warn("session server stop failed during manager close", "session_id", id, "error", err)
			}
		}
		if sess.store != nil {
			sess.store.Close()
		}
	}
	m.sessions = make(map[string]*Session)
	return m.baseStore.Close()
}

// Get returns the live session named id, if exported.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// List returns every currently exported session's record.
func (m *Manager) List() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]Record, 0, len(m.sessions))
	for _, sess := range m.sessions {
		records = append(records, sess.Record)
	}
	return records
}

func (m *Manager) sessionDeltaDir(id string) string {
	return filepath.Join(m.sessionsDir, id)
}

func (m *Manager) sessionMountPoint(id string) string {
	repoName := filepath.Base(m.repoRoot)
	return filepath.Join(m.mountsDir, fmt.Sprintf("%s-%s", repoName, id))
}

func (m *Manager) recordPath(id string) string {
	return filepath.Join(m.sessionsDir, id+".json")
}
