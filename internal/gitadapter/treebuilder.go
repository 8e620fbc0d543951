package gitadapter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// TreeBuilder is an in-memory trie of path segments seeded from a base
// commit's tree, mutated with Put/Remove, then flushed bottom-up into
// stored object.Tree values. It lets promote splice many blob
// replacements and deletions into a new tree without rewriting every
// directory by hand for each change.
type TreeBuilder struct {
	adapter *Adapter
	root    *treeNode
}

type treeNode struct {
	children map[string]*treeNode
	oid      plumbing.Hash // set on leaf (blob) nodes
	mode     filemode.FileMode
	isBlob   bool
}

func newTreeNode() *treeNode {
	return &treeNode{children: make(map[string]*treeNode)}
}

// NewTreeBuilder seeds a builder from the tree at baseCommit. Passing
// plumbing.ZeroHash starts from an empty tree.
func NewTreeBuilder(adapter *Adapter, baseCommit plumbing.Hash) (*TreeBuilder, error) {
	tb := &TreeBuilder{adapter: adapter, root: newTreeNode()}
	if baseCommit == plumbing.ZeroHash {
		return tb, nil
	}

	entries, err := adapter.ListTreeRecursive(baseCommit)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		tb.Put(e.Path, e.OID, e.Mode)
	}
	return tb, nil
}

// Put inserts or replaces the blob at path.
func (tb *TreeBuilder) Put(path string, oid plumbing.Hash, mode filemode.FileMode) {
	segments := strings.Split(path, "/")
	node := tb.root
	for _, seg := range segments[:len(segments)-1] {
		next, ok := node.children[seg]
		if !ok {
			next = newTreeNode()
			node.children[seg] = next
		}
		node = next
	}
	leaf := segments[len(segments)-1]
	node.children[leaf] = &treeNode{oid: oid, mode: mode, isBlob: true, children: map[string]*treeNode{}}
}

// Remove deletes path from the tree. Removing a path that does not
// exist is a no-op.
func (tb *TreeBuilder) Remove(path string) {
	segments := strings.Split(path, "/")
	node := tb.root
	for _, seg := range segments[:len(segments)-1] {
		next, ok := node.children[seg]
		if !ok {
			return
		}
		node = next
	}
	delete(node.children, segments[len(segments)-1])
}

// Flush writes every directory node to the object store bottom-up and
// returns the OID of the root tree.
func (tb *TreeBuilder) Flush() (plumbing.Hash, error) {
	return tb.flushNode(tb.root)
}

func (tb *TreeBuilder) flushNode(node *treeNode) (plumbing.Hash, error) {
	if node.isBlob {
		return node.oid, nil
	}

	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)

	tree := &object.Tree{}
	for _, name := range names {
		child := node.children[name]
		oid, err := tb.flushNode(child)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		mode := child.mode
		if !child.isBlob {
			mode = filemode.Dir
		}
		if mode == 0 {
			mode = filemode.Regular
		}

		tree.Entries = append(tree.Entries, object.TreeEntry{
			Name: name,
			Mode: mode,
			Hash: oid,
		})
	}

	obj := tb.adapter.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: encode tree: %v", vibeerr.ErrGit, err)
	}
	oid, err := tb.adapter.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: store tree: %v", vibeerr.ErrGit, err)
	}
	return oid, nil
}
