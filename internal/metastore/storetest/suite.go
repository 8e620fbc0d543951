package storetest

import (
	"testing"

	"github.com/getaifs/vibefs/internal/metastore"
)

// StoreFactory creates a fresh metastore.Store instance for each test.
// The factory receives *testing.T so it can use t.TempDir() for the
// on-disk badger directory and t.Cleanup() for teardown.
type StoreFactory func(t *testing.T) *metastore.Store

// RunConformanceSuite runs the full conformance test suite against the
// provided store factory. Each subtest gets a fresh store to keep cases
// independent.
//
// The suite covers three categories:
//   - InodeOps: put/get/delete/rename, path round-tripping, inode ID
//     allocation
//   - DirtyOps: mark/clear/list dirty paths
//   - CloneOps: clone-to-destination fidelity and idempotence
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("InodeOps", func(t *testing.T) {
		runInodeOpsTests(t, factory)
	})

	t.Run("DirtyOps", func(t *testing.T) {
		runDirtyOpsTests(t, factory)
	})

	t.Run("CloneOps", func(t *testing.T) {
		runCloneOpsTests(t, factory)
	})
}
