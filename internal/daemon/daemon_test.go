package daemon

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/getaifs/vibefs/internal/config"
	"github.com/getaifs/vibefs/internal/gitadapter"
	"github.com/getaifs/vibefs/internal/ipc"
)

// newTestRepo initializes a real on-disk git repository with a single
// commit, matching the fixture the session package's own tests use.
func newTestRepo(t *testing.T, dir string) {
	t.Helper()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	adapter := gitadapter.FromRepositoryForTest(repo)

	blobOID, err := adapter.WriteBlob([]byte("hello vibe\n"))
	require.NoError(t, err)
	tb, err := gitadapter.NewTreeBuilder(adapter, plumbing.ZeroHash)
	require.NoError(t, err)
	tb.Put("README.md", blobOID, filemode.Regular)
	treeOID, err := tb.Flush()
	require.NoError(t, err)

	author := object.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(1700000000, 0)}
	commitOID, err := adapter.CreateCommit(treeOID, nil, "initial", author)
	require.NoError(t, err)
	require.NoError(t, adapter.UpdateRef("refs/heads/main", commitOID))
	require.NoError(t, adapter.UpdateRef("HEAD", commitOID))

	headRef := plumbing.NewSymbolicReference(plumbing.HEAD, "refs/heads/main")
	require.NoError(t, repo.Storer.SetReference(headRef))
}

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()

	repoRoot := t.TempDir()
	newTestRepo(t, repoRoot)
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, ".vibe"), 0o755))

	cfg := config.GetDefaultConfig()
	cfg.Daemon.SocketPath = filepath.Join(t.TempDir(), "vibed.sock")
	cfg.Daemon.PidFile = filepath.Join(t.TempDir(), "vibed.pid")
	cfg.Daemon.IdleTimeout = time.Hour
	cfg.Daemon.ShutdownTimeout = 5 * time.Second

	d, err := New(context.Background(), repoRoot, cfg, "test-version")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return d
}

func dialAndRoundTrip(t *testing.T, socketPath string, req ipc.Request) ipc.Response {
	t.Helper()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, ipc.WriteRequest(conn, req))
	resp, err := ipc.ReadResponse(bufio.NewReader(conn))
	require.NoError(t, err)
	return resp
}

func TestPingReturnsPongWithVersion(t *testing.T) {
	d := newTestDaemon(t)
	resp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqPing})
	require.Equal(t, ipc.RespPong, resp.Type)
	require.Equal(t, "test-version", resp.Version)
}

func TestStatusReportsRepoAndSessionCount(t *testing.T) {
	d := newTestDaemon(t)
	resp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqStatus})
	require.Equal(t, ipc.RespStatus, resp.Type)
	require.Equal(t, d.repoRoot, resp.RepoPath)
	require.Equal(t, 0, resp.SessionCount)
}

func TestExportListAndUnexportSession(t *testing.T) {
	d := newTestDaemon(t)

	exportResp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqExportSession, SessionID: "alice"})
	require.Equal(t, ipc.RespSessionExported, exportResp.Type)
	require.Equal(t, "alice", exportResp.SessionID)
	require.Greater(t, exportResp.NFSPort, 0)

	listResp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqListSessions})
	require.Equal(t, ipc.RespSessions, listResp.Type)
	require.Len(t, listResp.Sessions, 1)
	require.Equal(t, "alice", listResp.Sessions[0].ID)

	unexportResp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqUnexportSession, SessionID: "alice"})
	require.Equal(t, ipc.RespSessionUnexport, unexportResp.Type)

	listResp = dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqListSessions})
	require.Empty(t, listResp.Sessions)
}

func TestPromoteCommitDiffRoundTrip(t *testing.T) {
	d := newTestDaemon(t)

	exportResp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqExportSession, SessionID: "bob"})
	require.Equal(t, ipc.RespSessionExported, exportResp.Type)

	diffResp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqDiff, SessionID: "bob"})
	require.Equal(t, ipc.RespDiff, diffResp.Type)
	require.Empty(t, diffResp.Entries)

	promoteResp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqPromote, SessionID: "bob"})
	require.Equal(t, ipc.RespPromoted, promoteResp.Type)
	require.NotEmpty(t, promoteResp.CommitOID)

	commitResp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqCommit, SessionID: "bob"})
	require.Equal(t, ipc.RespCommitted, commitResp.Type)

	// Commit closes the session as a side effect.
	listResp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqListSessions})
	require.Empty(t, listResp.Sessions)
}

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	d := newTestDaemon(t)

	exportResp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqExportSession, SessionID: "carol"})
	require.Equal(t, ipc.RespSessionExported, exportResp.Type)

	snapResp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqSnapshot, SessionID: "carol", Label: "before"})
	require.Equal(t, ipc.RespSnapshotted, snapResp.Type)
	require.NotEmpty(t, snapResp.SnapshotPath)

	restoreResp := dialAndRoundTrip(t, d.socketPath, ipc.Request{
		Type: ipc.ReqRestore, SessionID: "carol", SnapshotName: "before", Backup: false,
	})
	require.Equal(t, ipc.RespRestored, restoreResp.Type)
}

func TestUnexportUnknownSessionReturnsError(t *testing.T) {
	d := newTestDaemon(t)
	resp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqUnexportSession, SessionID: "ghost"})
	require.Equal(t, ipc.RespError, resp.Type)
	require.NotEmpty(t, resp.Message)
}

func TestSecondDaemonRefusesToStartWhileFirstIsLive(t *testing.T) {
	repoRoot := t.TempDir()
	newTestRepo(t, repoRoot)
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, ".vibe"), 0o755))

	socketPath := filepath.Join(t.TempDir(), "vibed.sock")

	cfg := config.GetDefaultConfig()
	cfg.Daemon.SocketPath = socketPath
	cfg.Daemon.PidFile = filepath.Join(t.TempDir(), "vibed.pid")
	cfg.Daemon.IdleTimeout = time.Hour
	cfg.Daemon.ShutdownTimeout = 5 * time.Second

	first, err := New(context.Background(), repoRoot, cfg, "test-version")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go first.Run(ctx)

	_, err = New(context.Background(), repoRoot, cfg, "test-version")
	require.Error(t, err)
}

func TestShutdownRemovesSocketAndPidFile(t *testing.T) {
	repoRoot := t.TempDir()
	newTestRepo(t, repoRoot)
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, ".vibe"), 0o755))

	cfg := config.GetDefaultConfig()
	cfg.Daemon.SocketPath = filepath.Join(t.TempDir(), "vibed.sock")
	cfg.Daemon.PidFile = filepath.Join(t.TempDir(), "vibed.pid")
	cfg.Daemon.IdleTimeout = time.Hour
	cfg.Daemon.ShutdownTimeout = 5 * time.Second

	d, err := New(context.Background(), repoRoot, cfg, "test-version")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(done)
	}()

	resp := dialAndRoundTrip(t, d.socketPath, ipc.Request{Type: ipc.ReqShutdown})
	require.Equal(t, ipc.RespShuttingDown, resp.Type)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop after Shutdown request")
	}

	_, err = os.Stat(d.socketPath)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(d.pidPath)
	require.True(t, os.IsNotExist(err))
}
