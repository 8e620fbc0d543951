package storetest

import (
	"context"
	"sort"
	"testing"
)

// runDirtyOpsTests runs all dirty-set bookkeeping conformance tests.
func runDirtyOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("MarkThenIsDirtyAndListed", func(t *testing.T) { testMarkThenIsDirtyAndListed(t, factory) })
	t.Run("ClearDirtyRemovesOne", func(t *testing.T) { testClearDirtyRemovesOne(t, factory) })
	t.Run("ClearAllDirtyEmptiesTheSet", func(t *testing.T) { testClearAllDirtyEmptiesTheSet(t, factory) })
	t.Run("ClearDirtyOnCleanPathIsNotAnError", func(t *testing.T) { testClearDirtyOnCleanPathIsNotAnError(t, factory) })
}

// testMarkThenIsDirtyAndListed verifies spec.md §8's "after mark_dirty(p)
// and before any clear_dirty(), is_dirty(p) is true and p is in
// get_dirty_paths()."
func testMarkThenIsDirtyAndListed(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	if err := store.MarkDirty(ctx, "a.txt"); err != nil {
		t.Fatalf("MarkDirty() failed: %v", err)
	}
	if err := store.MarkDirty(ctx, "b.txt"); err != nil {
		t.Fatalf("MarkDirty() failed: %v", err)
	}

	dirty, err := store.IsDirty(ctx, "a.txt")
	if err != nil {
		t.Fatalf("IsDirty() failed: %v", err)
	}
	if !dirty {
		t.Error("IsDirty(a.txt) = false after MarkDirty, want true")
	}

	paths, err := store.GetDirtyPaths(ctx)
	if err != nil {
		t.Fatalf("GetDirtyPaths() failed: %v", err)
	}
	sort.Strings(paths)
	if len(paths) != 2 || paths[0] != "a.txt" || paths[1] != "b.txt" {
		t.Errorf("GetDirtyPaths() = %v, want [a.txt b.txt]", paths)
	}
}

func testClearDirtyRemovesOne(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	if err := store.MarkDirty(ctx, "a.txt"); err != nil {
		t.Fatalf("MarkDirty() failed: %v", err)
	}
	if err := store.MarkDirty(ctx, "b.txt"); err != nil {
		t.Fatalf("MarkDirty() failed: %v", err)
	}
	if err := store.ClearDirty(ctx, "a.txt"); err != nil {
		t.Fatalf("ClearDirty() failed: %v", err)
	}

	paths, err := store.GetDirtyPaths(ctx)
	if err != nil {
		t.Fatalf("GetDirtyPaths() failed: %v", err)
	}
	if len(paths) != 1 || paths[0] != "b.txt" {
		t.Errorf("GetDirtyPaths() after clearing a.txt = %v, want [b.txt]", paths)
	}
}

func testClearAllDirtyEmptiesTheSet(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	for _, p := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := store.MarkDirty(ctx, p); err != nil {
			t.Fatalf("MarkDirty(%q) failed: %v", p, err)
		}
	}
	if err := store.ClearAllDirty(ctx); err != nil {
		t.Fatalf("ClearAllDirty() failed: %v", err)
	}

	paths, err := store.GetDirtyPaths(ctx)
	if err != nil {
		t.Fatalf("GetDirtyPaths() failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("GetDirtyPaths() after ClearAllDirty = %v, want empty", paths)
	}
}

func testClearDirtyOnCleanPathIsNotAnError(t *testing.T, factory StoreFactory) {
	store := factory(t)
	if err := store.ClearDirty(context.Background(), "never-marked.txt"); err != nil {
		t.Errorf("ClearDirty() on a path never marked dirty = %v, want nil", err)
	}
}
