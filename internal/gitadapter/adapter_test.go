package gitadapter

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) (*Adapter, plumbing.Hash) {
	t.Helper()

	fs := memfs.New()
	storer := memory.NewStorage()
	repo, err := git.Init(storer, fs)
	require.NoError(t, err)

	a := fromRepository(repo)

	readmeOID, err := a.WriteBlob([]byte("hello vibefs\n"))
	require.NoError(t, err)

	tb, err := NewTreeBuilder(a, plumbing.ZeroHash)
	require.NoError(t, err)
	tb.Put("README.md", readmeOID, filemode.Regular)
	treeOID, err := tb.Flush()
	require.NoError(t, err)

	author := object.Signature{Name: "vibefs", Email: "vibefs@example.com", When: time.Unix(0, 0)}
	commitOID, err := a.CreateCommit(treeOID, nil, "initial commit", author)
	require.NoError(t, err)

	require.NoError(t, a.UpdateRef("refs/heads/main", commitOID))
	require.NoError(t, repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, "refs/heads/main")))

	return a, commitOID
}

func TestHeadCommit(t *testing.T) {
	a, commitOID := newTestAdapter(t)

	head, err := a.HeadCommit()
	require.NoError(t, err)
	require.Equal(t, commitOID, head)
}

func TestWriteBlobIsContentAddressed(t *testing.T) {
	a, _ := newTestAdapter(t)

	oid1, err := a.WriteBlob([]byte("same content"))
	require.NoError(t, err)
	oid2, err := a.WriteBlob([]byte("same content"))
	require.NoError(t, err)

	require.Equal(t, oid1, oid2)
}

func TestReadBlobRoundTrip(t *testing.T) {
	a, _ := newTestAdapter(t)

	oid, err := a.WriteBlob([]byte("round trip payload"))
	require.NoError(t, err)

	data, err := a.ReadBlob(oid)
	require.NoError(t, err)
	require.Equal(t, "round trip payload", string(data))
}

func TestReadFileAtCommit(t *testing.T) {
	a, commitOID := newTestAdapter(t)

	data, ok, err := a.ReadFileAtCommit(commitOID, "README.md")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello vibefs\n", string(data))

	_, ok, err = a.ReadFileAtCommit(commitOID, "does-not-exist.txt")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListTreeRecursive(t *testing.T) {
	a, commitOID := newTestAdapter(t)

	entries, err := a.ListTreeRecursive(commitOID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "README.md", entries[0].Path)
}

func TestGetRefAndUpdateRef(t *testing.T) {
	a, commitOID := newTestAdapter(t)

	oid, ok, err := a.GetRef("refs/heads/main")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, commitOID, oid)

	_, ok, err = a.GetRef("refs/heads/does-not-exist")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTreeBuilderPutAndRemove(t *testing.T) {
	a, commitOID := newTestAdapter(t)

	tb, err := NewTreeBuilder(a, commitOID)
	require.NoError(t, err)

	newOID, err := a.WriteBlob([]byte("new file content"))
	require.NoError(t, err)
	tb.Put("src/new.go", newOID, filemode.Regular)
	tb.Remove("README.md")

	treeOID, err := tb.Flush()
	require.NoError(t, err)

	author := object.Signature{Name: "vibefs", Email: "vibefs@example.com", When: time.Unix(0, 0)}
	newCommit, err := a.CreateCommit(treeOID, []plumbing.Hash{commitOID}, "promote", author)
	require.NoError(t, err)

	_, ok, err := a.ReadFileAtCommit(newCommit, "README.md")
	require.NoError(t, err)
	require.False(t, ok)

	data, ok, err := a.ReadFileAtCommit(newCommit, "src/new.go")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "new file content", string(data))
}

func TestDiffPaths(t *testing.T) {
	a, commitOID := newTestAdapter(t)

	tb, err := NewTreeBuilder(a, commitOID)
	require.NoError(t, err)
	oid, err := a.WriteBlob([]byte("changed"))
	require.NoError(t, err)
	tb.Put("README.md", oid, filemode.Regular)
	treeOID, err := tb.Flush()
	require.NoError(t, err)

	author := object.Signature{Name: "vibefs", Email: "vibefs@example.com", When: time.Unix(0, 0)}
	newCommit, err := a.CreateCommit(treeOID, []plumbing.Hash{commitOID}, "edit", author)
	require.NoError(t, err)

	paths, err := a.DiffPaths(commitOID, newCommit)
	require.NoError(t, err)
	require.Contains(t, paths, "README.md")
}
