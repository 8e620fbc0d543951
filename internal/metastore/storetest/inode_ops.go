package storetest

import (
	"context"
	"testing"

	"github.com/getaifs/vibefs/internal/metastore"
)

// runInodeOpsTests runs all inode CRUD and allocation conformance tests.
func runInodeOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("PutGetRoundTrip", func(t *testing.T) { testPutGetRoundTrip(t, factory) })
	t.Run("GetByPathMatchesGetByID", func(t *testing.T) { testGetByPathMatchesGetByID(t, factory) })
	t.Run("DeleteRemovesBothMappings", func(t *testing.T) { testDeleteRemovesBothMappings(t, factory) })
	t.Run("RenameMovesPathKeepsID", func(t *testing.T) { testRenameMovesPathKeepsID(t, factory) })
	t.Run("NextInodeIDNeverRepeats", func(t *testing.T) { testNextInodeIDNeverRepeats(t, factory) })
	t.Run("GetInodeNotFound", func(t *testing.T) { testGetInodeNotFound(t, factory) })
	t.Run("GetByPathNotFound", func(t *testing.T) { testGetByPathNotFound(t, factory) })
}

// testPutGetRoundTrip verifies spec.md §8's "for every path stored in B,
// get_inode_by_path(path) = id and get_inode(id).path = path" both hold
// after a plain PutInode.
func testPutGetRoundTrip(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	oid := "deadbeef"
	want := &metastore.Inode{Path: "src/main.go", GitOID: &oid, IsDir: false, Size: 42}
	if err := store.PutInode(ctx, 100, want); err != nil {
		t.Fatalf("PutInode() failed: %v", err)
	}

	got, err := store.GetInode(ctx, 100)
	if err != nil {
		t.Fatalf("GetInode() failed: %v", err)
	}
	if got.Path != want.Path || got.Size != want.Size {
		t.Errorf("GetInode() = %+v, want %+v", got, want)
	}
}

// testGetByPathMatchesGetByID checks the forward/reverse mapping
// agreement invariant directly.
func testGetByPathMatchesGetByID(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	if err := store.PutInode(ctx, 101, &metastore.Inode{Path: "README.md", Size: 13}); err != nil {
		t.Fatalf("PutInode() failed: %v", err)
	}

	id, byPath, err := store.GetInodeByPath(ctx, "README.md")
	if err != nil {
		t.Fatalf("GetInodeByPath() failed: %v", err)
	}
	if id != 101 {
		t.Errorf("GetInodeByPath() id = %d, want 101", id)
	}

	byID, err := store.GetInode(ctx, id)
	if err != nil {
		t.Fatalf("GetInode() failed: %v", err)
	}
	if byID.Path != byPath.Path {
		t.Errorf("GetInode(id).Path = %q, GetInodeByPath().Path = %q, want equal", byID.Path, byPath.Path)
	}
}

// testDeleteRemovesBothMappings verifies DeleteInode leaves neither the
// forward nor the reverse index resolvable.
func testDeleteRemovesBothMappings(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	if err := store.PutInode(ctx, 102, &metastore.Inode{Path: "tmp.txt"}); err != nil {
		t.Fatalf("PutInode() failed: %v", err)
	}
	if err := store.DeleteInode(ctx, 102); err != nil {
		t.Fatalf("DeleteInode() failed: %v", err)
	}

	if _, err := store.GetInode(ctx, 102); err == nil {
		t.Error("GetInode() after delete succeeded, want error")
	}
	if _, _, err := store.GetInodeByPath(ctx, "tmp.txt"); err == nil {
		t.Error("GetInodeByPath() after delete succeeded, want error")
	}
}

// testRenameMovesPathKeepsID verifies RenameInode moves the path index
// and carries a dirty marker along, without changing the inode ID.
func testRenameMovesPathKeepsID(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	if err := store.PutInode(ctx, 103, &metastore.Inode{Path: "old/path.go"}); err != nil {
		t.Fatalf("PutInode() failed: %v", err)
	}
	if err := store.MarkDirty(ctx, "old/path.go"); err != nil {
		t.Fatalf("MarkDirty() failed: %v", err)
	}
	if err := store.RenameInode(ctx, 103, "old/path.go", "new/path.go"); err != nil {
		t.Fatalf("RenameInode() failed: %v", err)
	}

	if _, _, err := store.GetInodeByPath(ctx, "old/path.go"); err == nil {
		t.Error("GetInodeByPath(old) after rename succeeded, want error")
	}
	id, got, err := store.GetInodeByPath(ctx, "new/path.go")
	if err != nil {
		t.Fatalf("GetInodeByPath(new) failed: %v", err)
	}
	if id != 103 {
		t.Errorf("id after rename = %d, want 103", id)
	}
	if got.Path != "new/path.go" {
		t.Errorf("Path after rename = %q, want %q", got.Path, "new/path.go")
	}

	dirty, err := store.IsDirty(ctx, "new/path.go")
	if err != nil {
		t.Fatalf("IsDirty(new) failed: %v", err)
	}
	if !dirty {
		t.Error("IsDirty(new) = false, want true (dirty marker should follow the rename)")
	}
	dirty, err = store.IsDirty(ctx, "old/path.go")
	if err != nil {
		t.Fatalf("IsDirty(old) failed: %v", err)
	}
	if dirty {
		t.Error("IsDirty(old) = true, want false (old path's marker must not linger)")
	}
}

// testNextInodeIDNeverRepeats checks spec.md §8's "no inode ID is
// returned twice by next_inode_id() across any interleaving of calls."
func testNextInodeIDNeverRepeats(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := context.Background()

	seen := make(map[uint64]bool)
	for i := 0; i < 50; i++ {
		id, err := store.NextInodeID(ctx)
		if err != nil {
			t.Fatalf("NextInodeID() failed: %v", err)
		}
		if seen[id] {
			t.Fatalf("NextInodeID() returned %d twice", id)
		}
		seen[id] = true
	}
}

func testGetInodeNotFound(t *testing.T, factory StoreFactory) {
	store := factory(t)
	if _, err := store.GetInode(context.Background(), 999); err == nil {
		t.Error("GetInode() on unknown id succeeded, want error")
	}
}

func testGetByPathNotFound(t *testing.T, factory StoreFactory) {
	store := factory(t)
	if _, _, err := store.GetInodeByPath(context.Background(), "nope.txt"); err == nil {
		t.Error("GetInodeByPath() on unknown path succeeded, want error")
	}
}
