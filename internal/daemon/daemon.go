// Package daemon implements vibed, the per-repository background
// process that owns the session manager and answers IPC requests from
// the vibe CLI over a Unix domain socket, auto-shutting down after a
// period with zero active sessions.
package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/getaifs/vibefs/internal/config"
	"github.com/getaifs/vibefs/internal/logger"
	"github.com/getaifs/vibefs/internal/nfsserver"
	"github.com/getaifs/vibefs/internal/overlay"
	"github.com/getaifs/vibefs/internal/session"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

// rootExportPath is the MOUNT dirpath every session's NFS server
// exports. VibeFS has no portmap registration and no multi-export
// namespace: each session gets its own dedicated listener and port, so
// there is nothing to disambiguate by path and every export answers to
// the same root.
const rootExportPath = "/"

// idleCheckInterval mirrors the daemon's original 60-second poll loop.
const idleCheckInterval = 60 * time.Second

// Daemon is one running vibed process, bound to a single repository.
type Daemon struct {
	cfg      *config.Config
	version  string
	repoRoot string

	socketPath string
	pidPath    string

	mgr      *session.Manager
	listener net.Listener

	startTime time.Time

	mu           sync.Mutex
	lastActivity time.Time
	shuttingDown bool
	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	wg sync.WaitGroup
}

// New opens the repository's session manager, binds the IPC socket
// (clearing a stale one left behind by a crashed daemon), and writes
// the PID file. The repository must already be initialized (its
// .vibe directory must exist) — New does not create it.
func New(ctx context.Context, repoRoot string, cfg *config.Config, version string) (*Daemon, error) {
	vibeDir := filepath.Join(repoRoot, ".vibe")
	if _, err := os.Stat(vibeDir); err != nil {
		return nil, fmt.Errorf("%w: %q is not a VibeFS repository, run `vibe init` first", vibeerr.ErrNotFound, repoRoot)
	}

	socketPath := cfg.Daemon.SocketPath
	pidPath := cfg.Daemon.PidFile

	if err := clearStaleSocket(socketPath); err != nil {
		return nil, err
	}

	factory := func(sessionID string, fs overlay.FileSystem) (session.ServerHandle, error) {
		return nfsserver.New(sessionID, rootExportPath, fs)
	}

	mgr, err := session.New(ctx, repoRoot, cfg.ArtifactDirs, factory)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		mgr.Shutdown(ctx)
		return nil, fmt.Errorf("%w: create socket directory: %v", vibeerr.ErrIO, err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		mgr.Shutdown(ctx)
		return nil, fmt.Errorf("%w: bind ipc socket %q: %v", vibeerr.ErrIO, socketPath, err)
	}

	if err := writePIDFile(pidPath); err != nil {
		ln.Close()
		mgr.Shutdown(ctx)
		return nil, err
	}

	return &Daemon{
		cfg:          cfg,
		version:      version,
		repoRoot:     repoRoot,
		socketPath:   socketPath,
		pidPath:      pidPath,
		mgr:          mgr,
		listener:     ln,
		startTime:    now(),
		lastActivity: now(),
		shutdownCh:   make(chan struct{}),
	}, nil
}

// Run accepts IPC connections until Shutdown is called or ctx is
// canceled, then drains in-flight connections and cleans up the
// socket and PID file. It blocks until the daemon has fully stopped.
func (d *Daemon) Run(ctx context.Context) error {
	logger.Info("vibed ready", "repo", d.repoRoot, "socket", d.socketPath)

	idleDone := make(chan struct{})
	go func() {
		d.runIdleChecker()
		close(idleDone)
	}()

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- d.acceptLoop()
	}()

	select {
	case <-ctx.Done():
		logger.Info("vibed stopping: context canceled")
	case <-d.shutdownCh:
		logger.Info("vibed stopping: shutdown requested")
	case err := <-acceptErr:
		if err != nil {
			logger.Warn("vibed accept loop ended", "error", err)
		}
	}

	d.mu.Lock()
	d.shuttingDown = true
	d.mu.Unlock()
	d.listener.Close()

	d.wg.Wait()
	<-idleDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.Daemon.ShutdownTimeout)
	defer cancel()
	if err := d.mgr.Shutdown(shutdownCtx); err != nil {
		logger.Warn("vibed session manager shutdown failed", "error", err)
	}

	os.Remove(d.socketPath)
	os.Remove(d.pidPath)
	logger.Info("vibed stopped")
	return nil
}

// Shutdown requests a graceful stop; Run returns once it has drained.
// Safe to call more than once or concurrently.
func (d *Daemon) Shutdown() {
	d.shutdownOnce.Do(func() { close(d.shutdownCh) })
}

func (d *Daemon) acceptLoop() error {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			d.mu.Lock()
			down := d.shuttingDown
			d.mu.Unlock()
			if down {
				return nil
			}
			return err
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.handleConn(conn)
		}()
	}
}

func (d *Daemon) touch() {
	d.mu.Lock()
	d.lastActivity = now()
	d.mu.Unlock()
}

func (d *Daemon) isIdle(timeout time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return now().Sub(d.lastActivity) > timeout
}

func (d *Daemon) runIdleChecker() {
	ticker := time.NewTicker(idleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.shutdownCh:
			return
		case <-ticker.C:
			if d.isIdle(d.cfg.Daemon.IdleTimeout) && len(d.mgr.List()) == 0 {
				logger.Info("vibed idle timeout reached, shutting down", "timeout", d.cfg.Daemon.IdleTimeout)
				d.Shutdown()
				return
			}
		}
	}
}

// now is the single indirection point for wall-clock reads in this
// package.
var now = func() time.Time { return time.Now() }
