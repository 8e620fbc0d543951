// Package storetest provides a conformance test suite for metastore.Store.
//
// It exists so the invariants a metadata store must hold — inode/path
// round-tripping, inode ID uniqueness, dirty-set bookkeeping, and
// clone-to-destination fidelity — are expressed once and run against a
// fresh store per test, instead of being re-derived ad hoc in each
// caller's own table-driven test.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    storetest.RunConformanceSuite(t, func(t *testing.T) *metastore.Store {
//	        store, err := metastore.Open(filepath.Join(t.TempDir(), "metadata.db"))
//	        require.NoError(t, err)
//	        t.Cleanup(func() { store.Close() })
//	        return store
//	    })
//	}
package storetest
