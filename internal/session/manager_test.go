package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/getaifs/vibefs/internal/gitadapter"
	"github.com/getaifs/vibefs/internal/overlay"
)

// fakeServer is a no-op ServerHandle used in place of a real NFS
// listener so session tests exercise the state machine without
// binding any sockets.
type fakeServer struct {
	port    int
	stopped bool
}

func (f *fakeServer) Port() int { return f.port }
func (f *fakeServer) Stop(ctx context.Context) error {
	f.stopped = true
	return nil
}

func fakeServerFactory(nextPort *int) ServerFactory {
	return func(sessionID string, fs overlay.FileSystem) (ServerHandle, error) {
		*nextPort++
		return &fakeServer{port: *nextPort}, nil
	}
}

// newTestRepo initializes a real on-disk git repository at dir with a
// single commit containing README.md, and returns its commit hash.
func newTestRepo(t *testing.T, dir string) plumbing.Hash {
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

	return commitOID
}

func newTestManager(t *testing.T) (*Manager, int) {
	t.Helper()

	repoRoot := t.TempDir()
	newTestRepo(t, repoRoot)

	port := 5000
	m, err := New(context.Background(), repoRoot, []string{"node_modules", "target"}, fakeServerFactory(&port))
	require.NoError(t, err)
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	return m, port
}

func TestSpawnIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	rec1, err := m.Spawn(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, StateExported, rec1.State)

	rec2, err := m.Spawn(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, rec1, rec2)
}

func TestSpawnMaterializesArtifactSymlinks(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Spawn(ctx, "alice")
	require.NoError(t, err)

	link := filepath.Join(rec.DeltaDir, "node_modules")
	info, err := os.Lstat(link)
	require.NoError(t, err)
	require.True(t, info.Mode()&os.ModeSymlink != 0)
}

func TestWriteThenPromoteCreatesVibeRef(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Spawn(ctx, "alice")
	require.NoError(t, err)

	sess, ok := m.Get("alice")
	require.True(t, ok)
	_, attr, err := sess.engine.Lookup(ctx, overlay.RootInodeID, "README.md")
	require.NoError(t, err)
	_, err = sess.engine.Write(ctx, attr.InodeID, 0, []byte("hello vibe, modified\n"), 1700000100)
	require.NoError(t, err)

	commitOID, err := m.Promote(ctx, "alice")
	require.NoError(t, err)
	require.NotEqual(t, plumbing.ZeroHash, commitOID)

	refOID, ok, err := m.git.GetRef("refs/vibes/alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, commitOID, refOID)

	data, _, err := m.git.ReadFileAtCommit(commitOID, "README.md")
	require.NoError(t, err)
	require.Equal(t, "hello vibe, modified\n", string(data))

	require.NotEqual(t, rec.BaseCommit, "")
}

func TestCommitRequiresPromoteFirst(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Spawn(ctx, "alice")
	require.NoError(t, err)

	err = m.Commit(ctx, "alice")
	require.Error(t, err)
}

func TestCommitAdvancesHeadAndClosesSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Spawn(ctx, "alice")
	require.NoError(t, err)

	sess, ok := m.Get("alice")
	require.True(t, ok)
	_, attr, err := sess.engine.Lookup(ctx, overlay.RootInodeID, "README.md")
	require.NoError(t, err)
	_, err = sess.engine.Write(ctx, attr.InodeID, 0, []byte("committed content\n"), 1700000200)
	require.NoError(t, err)

	_, err = m.Promote(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, m.Commit(ctx, "alice"))

	headCommit, err := m.git.HeadCommit()
	require.NoError(t, err)
	data, _, err := m.git.ReadFileAtCommit(headCommit, "README.md")
	require.NoError(t, err)
	require.Equal(t, "committed content\n", string(data))

	_, stillExists := m.Get("alice")
	require.False(t, stillExists)
}

func TestRebaseDetectsConflict(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Spawn(ctx, "alice")
	require.NoError(t, err)

	sess, ok := m.Get("alice")
	require.True(t, ok)
	_, attr, err := sess.engine.Lookup(ctx, overlay.RootInodeID, "README.md")
	require.NoError(t, err)
	_, err = sess.engine.Write(ctx, attr.InodeID, 0, []byte("alice's change\n"), 1700000300)
	require.NoError(t, err)

	headBefore, err := m.git.HeadCommit()
	require.NoError(t, err)
	tb, err := gitadapter.NewTreeBuilder(m.git, headBefore)
	require.NoError(t, err)
	oid, err := m.git.WriteBlob([]byte("changed upstream\n"))
	require.NoError(t, err)
	tb.Put("README.md", oid, filemode.Regular)
	treeOID, err := tb.Flush()
	require.NoError(t, err)
	author := object.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(1700000400, 0)}
	newHead, err := m.git.CreateCommit(treeOID, []plumbing.Hash{headBefore}, "upstream change", author)
	require.NoError(t, err)
	require.NoError(t, m.git.AdvanceHead(newHead))

	result, err := m.Rebase(ctx, "alice", false)
	require.NoError(t, err)
	require.False(t, result.AlreadyAt)
	require.Contains(t, result.Conflicts, "README.md")

	sess2, _ := m.Get("alice")
	require.Equal(t, headBefore.String(), sess2.Record.BaseCommit)

	result, err = m.Rebase(ctx, "alice", true)
	require.NoError(t, err)
	require.Equal(t, newHead.String(), result.NewBase)

	sess3, _ := m.Get("alice")
	require.Equal(t, newHead.String(), sess3.Record.BaseCommit)
}

func TestSnapshotAndRestore(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Spawn(ctx, "alice")
	require.NoError(t, err)

	sess, ok := m.Get("alice")
	require.True(t, ok)
	_, attr, err := sess.engine.Lookup(ctx, overlay.RootInodeID, "README.md")
	require.NoError(t, err)
	_, err = sess.engine.Write(ctx, attr.InodeID, 0, []byte("snapshot me\n"), 1700000500)
	require.NoError(t, err)

	snapDir, err := m.Snapshot(ctx, "alice", "checkpoint1")
	require.NoError(t, err)
	require.DirExists(t, snapDir)

	sess2, _ := m.Get("alice")
	_, attr2, err := sess2.engine.Lookup(ctx, overlay.RootInodeID, "README.md")
	require.NoError(t, err)
	_, err = sess2.engine.Write(ctx, attr2.InodeID, 0, []byte("overwritten\n"), 1700000600)
	require.NoError(t, err)

	require.NoError(t, m.Restore(ctx, "alice", "checkpoint1", false, ""))

	sess3, ok := m.Get("alice")
	require.True(t, ok)
	require.Equal(t, StateExported, sess3.Record.State)

	data, err := os.ReadFile(filepath.Join(sess3.Record.DeltaDir, "README.md"))
	require.NoError(t, err)
	require.Equal(t, "snapshot me\n", string(data))

	dirty, err := sess3.store.IsDirty(ctx, "README.md")
	require.NoError(t, err)
	require.True(t, dirty)
}

func TestResetHardDiscardsChanges(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Spawn(ctx, "alice")
	require.NoError(t, err)

	sess, ok := m.Get("alice")
	require.True(t, ok)
	_, attr, err := sess.engine.Lookup(ctx, overlay.RootInodeID, "README.md")
	require.NoError(t, err)
	_, err = sess.engine.Write(ctx, attr.InodeID, 0, []byte("will be discarded\n"), 1700000700)
	require.NoError(t, err)

	require.NoError(t, m.ResetHard(ctx, "alice", false, ""))

	sess2, ok := m.Get("alice")
	require.True(t, ok)
	require.Equal(t, StateExported, sess2.Record.State)

	_, attr2, err := sess2.engine.Lookup(ctx, overlay.RootInodeID, "README.md")
	require.NoError(t, err)
	data, _, err := sess2.engine.Read(ctx, attr2.InodeID, 0, 1024)
	require.NoError(t, err)
	require.Equal(t, "hello vibe\n", string(data))
}

func TestDiffClassifiesAddedAndModified(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Spawn(ctx, "alice")
	require.NoError(t, err)

	sess, ok := m.Get("alice")
	require.True(t, ok)
	_, attr, err := sess.engine.Lookup(ctx, overlay.RootInodeID, "README.md")
	require.NoError(t, err)
	_, err = sess.engine.Write(ctx, attr.InodeID, 0, []byte("modified\n"), 1700000800)
	require.NoError(t, err)

	_, _, err = sess.engine.Create(ctx, overlay.RootInodeID, "new.txt", 1700000900)
	require.NoError(t, err)

	report, err := m.Diff(ctx, "alice")
	require.NoError(t, err)

	statuses := map[string]ChangeStatus{}
	for _, e := range report.Entries {
		statuses[e.Path] = e.Status
	}
	require.Equal(t, StatusModified, statuses["README.md"])
	require.Equal(t, StatusAdded, statuses["new.txt"])
}

func TestCloseRemovesSessionState(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	rec, err := m.Spawn(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, m.Close(ctx, "alice"))

	_, ok := m.Get("alice")
	require.False(t, ok)
	require.NoDirExists(t, rec.DeltaDir)
}
