package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/getaifs/vibefs/internal/metastore"
)

// runCloneOpsTests runs all CloneTo conformance tests.
func runCloneOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("CloneMatchesSourceAtCloneTime", func(t *testing.T) { testCloneMatchesSourceAtCloneTime(t, factory) })
	t.Run("CloneIsIdempotent", func(t *testing.T) { testCloneIsIdempotent(t, factory) })
	t.Run("CloneCarriesInodeCounter", func(t *testing.T) { testCloneCarriesInodeCounter(t, factory) })
}

// testCloneMatchesSourceAtCloneTime verifies spec.md §8's "clone_to
// followed by any read on the destination returns the same inode table
// as the source at the moment of cloning" — including that later writes
// to the source don't leak into the already-cloned destination.
func testCloneMatchesSourceAtCloneTime(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	if err := store.PutInode(ctx, 100, &metastore.Inode{Path: "a.txt", Size: 5}); err != nil {
		t.Fatalf("PutInode() failed: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "session.db")
	clone, err := store.CloneTo(ctx, destPath)
	if err != nil {
		t.Fatalf("CloneTo() failed: %v", err)
	}
	defer clone.Close()

	// Mutate the source after cloning; the clone must not see it.
	if err := store.PutInode(ctx, 101, &metastore.Inode{Path: "b.txt", Size: 9}); err != nil {
		t.Fatalf("PutInode() on source failed: %v", err)
	}

	got, err := clone.GetInode(ctx, 100)
	if err != nil {
		t.Fatalf("GetInode(100) on clone failed: %v", err)
	}
	if got.Path != "a.txt" {
		t.Errorf("clone GetInode(100).Path = %q, want %q", got.Path, "a.txt")
	}
	if _, err := clone.GetInode(ctx, 101); err == nil {
		t.Error("clone sees an inode written to the source after CloneTo, want isolation")
	}
}

// testCloneIsIdempotent verifies re-running CloneTo against an
// already-populated destination opens it as-is rather than overwriting it.
func testCloneIsIdempotent(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	if err := store.PutInode(ctx, 100, &metastore.Inode{Path: "a.txt"}); err != nil {
		t.Fatalf("PutInode() failed: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "session.db")
	first, err := store.CloneTo(ctx, destPath)
	if err != nil {
		t.Fatalf("CloneTo() (first) failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() on first clone failed: %v", err)
	}

	second, err := store.CloneTo(ctx, destPath)
	if err != nil {
		t.Fatalf("CloneTo() (second) failed: %v", err)
	}
	defer second.Close()

	got, err := second.GetInode(ctx, 100)
	if err != nil {
		t.Fatalf("GetInode(100) on reopened clone failed: %v", err)
	}
	if got.Path != "a.txt" {
		t.Errorf("reopened clone GetInode(100).Path = %q, want %q", got.Path, "a.txt")
	}
}

// testCloneCarriesInodeCounter verifies the destination continues the
// source's inode ID sequence rather than restarting it, so IDs stay
// unique across the clone boundary.
func testCloneCarriesInodeCounter(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	if err := store.PutInode(ctx, 100, &metastore.Inode{Path: "a.txt"}); err != nil {
		t.Fatalf("PutInode() failed: %v", err)
	}
	allocated, err := store.NextInodeID(ctx)
	if err != nil {
		t.Fatalf("NextInodeID() on source failed: %v", err)
	}

	destPath := filepath.Join(t.TempDir(), "session.db")
	clone, err := store.CloneTo(ctx, destPath)
	if err != nil {
		t.Fatalf("CloneTo() failed: %v", err)
	}
	defer clone.Close()

	next, err := clone.NextInodeID(ctx)
	if err != nil {
		t.Fatalf("NextInodeID() on clone failed: %v", err)
	}
	if next != allocated+1 {
		t.Errorf("clone NextInodeID() = %d, want %d (continuing the source's sequence)", next, allocated+1)
	}
}
