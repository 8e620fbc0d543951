package metastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/getaifs/vibefs/internal/metastore/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestConformance runs the shared storetest conformance suite against
// the badger-backed Store, exercising the invariants spec.md §8 lists
// for the metadata store.
func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, newTestStore)
}

// TestNextInodeIDStartsAtFirstInodeID is white-box: it asserts the
// concrete starting value, which the conformance suite (written against
// the exported API only) deliberately does not pin down.
func TestNextInodeIDStartsAtFirstInodeID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.NextInodeID(ctx)
	require.NoError(t, err)
	require.Equal(t, firstInodeID, id)

	id2, err := store.NextInodeID(ctx)
	require.NoError(t, err)
	require.Equal(t, firstInodeID+1, id2)
}

func TestGetAllInodes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutInode(ctx, 100, &Inode{Path: "a.txt"}))
	require.NoError(t, store.PutInode(ctx, 101, &Inode{Path: "b.txt"}))

	all, err := store.GetAllInodes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "a.txt", all[100].Path)
	require.Equal(t, "b.txt", all[101].Path)
}
