// Package gitadapter is VibeFS's window onto the underlying git
// repository every session overlays. It wraps go-git/go-git/v5 instead
// of shelling out to the git binary: blob reads/writes go straight
// through the repository's content-addressed object storer, and commit
// construction builds object.Commit/object.Tree values directly.
package gitadapter

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/getaifs/vibefs/internal/logger"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

// Adapter wraps an open git repository. One Adapter is shared by every
// session the daemon manages — it holds no session-specific state.
type Adapter struct {
	repo *git.Repository
}

// Open opens the git repository at path (bare or non-bare).
func Open(path string) (*Adapter, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open repository %q: %v", vibeerr.ErrGit, path, err)
	}
	return &Adapter{repo: repo}, nil
}

// fromRepository wraps an already-open repository. Used by tests that
// build an in-memory repository with go-git's memory storage.
func fromRepository(repo *git.Repository) *Adapter {
	return &Adapter{repo: repo}
}

// FromRepositoryForTest exposes fromRepository to other packages' tests
// (internal/overlay, internal/session) that already hold a
// *git.Repository and want an Adapter around it.
func FromRepositoryForTest(repo *git.Repository) *Adapter {
	return fromRepository(repo)
}

// HeadCommit returns the hash HEAD currently points to.
func (a *Adapter) HeadCommit() (plumbing.Hash, error) {
	ref, err := a.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: resolve HEAD: %v", vibeerr.ErrGit, err)
	}
	return ref.Hash(), nil
}

// ReadBlob returns the content of the blob identified by oid.
func (a *Adapter) ReadBlob(oid plumbing.Hash) ([]byte, error) {
	blob, err := a.repo.BlobObject(oid)
	if err != nil {
		return nil, fmt.Errorf("%w: read blob %s: %v", vibeerr.ErrNotFound, oid, err)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("%w: open blob %s: %v", vibeerr.ErrGit, oid, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read blob %s: %v", vibeerr.ErrGit, oid, err)
	}
	return data, nil
}

// WriteBlob stores data as a new blob object, content-addressed, and
// returns its hash. Writing the same bytes twice returns the same hash
// without duplicating storage.
func (a *Adapter) WriteBlob(data []byte) (plumbing.Hash, error) {
	obj := a.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: open blob writer: %v", vibeerr.ErrGit, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return plumbing.ZeroHash, fmt.Errorf("%w: write blob: %v", vibeerr.ErrGit, err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: close blob writer: %v", vibeerr.ErrGit, err)
	}

	oid, err := a.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: store blob: %v", vibeerr.ErrGit, err)
	}
	return oid, nil
}

// ReadFileAtCommit returns the content of path as it existed at commit,
// or (nil, false, nil) if the path does not exist at that commit.
func (a *Adapter) ReadFileAtCommit(commit plumbing.Hash, path string) ([]byte, bool, error) {
	c, err := a.repo.CommitObject(commit)
	if err != nil {
		return nil, false, fmt.Errorf("%w: resolve commit %s: %v", vibeerr.ErrGit, commit, err)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, false, fmt.Errorf("%w: resolve tree for %s: %v", vibeerr.ErrGit, commit, err)
	}
	entry, err := tree.File(path)
	if err != nil {
		if err == object.ErrFileNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: lookup %s at %s: %v", vibeerr.ErrGit, path, commit, err)
	}

	r, err := entry.Reader()
	if err != nil {
		return nil, false, fmt.Errorf("%w: open %s at %s: %v", vibeerr.ErrGit, path, commit, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("%w: read %s at %s: %v", vibeerr.ErrGit, path, commit, err)
	}
	return data, true, nil
}

// TreeEntry describes one file in a recursive tree listing.
type TreeEntry struct {
	Path string
	OID  plumbing.Hash
	Mode filemode.FileMode
}

// ListTreeRecursive walks the tree at commit and returns every blob path
// with its OID, skipping directory entries themselves.
func (a *Adapter) ListTreeRecursive(commit plumbing.Hash) ([]TreeEntry, error) {
	c, err := a.repo.CommitObject(commit)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve commit %s: %v", vibeerr.ErrGit, commit, err)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: resolve tree for %s: %v", vibeerr.ErrGit, commit, err)
	}

	var entries []TreeEntry
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: walk tree for %s: %v", vibeerr.ErrGit, commit, err)
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		entries = append(entries, TreeEntry{Path: name, OID: entry.Hash, Mode: entry.Mode})
	}
	return entries, nil
}

// GetRef returns the hash refname points to, or (zero, false, nil) if
// the ref does not exist.
func (a *Adapter) GetRef(refname string) (plumbing.Hash, bool, error) {
	ref, err := a.repo.Reference(plumbing.ReferenceName(refname), true)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return plumbing.ZeroHash, false, nil
		}
		return plumbing.ZeroHash, false, fmt.Errorf("%w: resolve ref %s: %v", vibeerr.ErrGit, refname, err)
	}
	return ref.Hash(), true, nil
}

// UpdateRef sets refname to point at oid.
func (a *Adapter) UpdateRef(refname string, oid plumbing.Hash) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(refname), oid)
	if err := a.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("%w: update ref %s: %v", vibeerr.ErrGit, refname, err)
	}
	logger.Debug("ref updated", "ref", refname, "oid", oid.String())
	return nil
}

// CreateCommit builds a commit object with the given tree and parents
// and stores it, returning its hash. It does not move any ref.
func (a *Adapter) CreateCommit(treeOID plumbing.Hash, parents []plumbing.Hash, message string, author object.Signature) (plumbing.Hash, error) {
	commit := &object.Commit{
		Author:       author,
		Committer:    author,
		Message:      message,
		TreeHash:     treeOID,
		ParentHashes: parents,
	}

	obj := a.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: encode commit: %v", vibeerr.ErrGit, err)
	}
	oid, err := a.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: store commit: %v", vibeerr.ErrGit, err)
	}
	return oid, nil
}

// DiffPaths returns the set of paths that differ between two commits'
// trees, used by Rebase's conflict check and by syncing a session to a
// new base commit.
func (a *Adapter) DiffPaths(from, to plumbing.Hash) ([]string, error) {
	fromTree, err := a.treeAt(from)
	if err != nil {
		return nil, err
	}
	toTree, err := a.treeAt(to)
	if err != nil {
		return nil, err
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("%w: diff trees: %v", vibeerr.ErrGit, err)
	}

	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.From.Name != "" {
			paths = append(paths, c.From.Name)
		} else {
			paths = append(paths, c.To.Name)
		}
	}
	return paths, nil
}

func (a *Adapter) treeAt(commit plumbing.Hash) (*object.Tree, error) {
	c, err := a.repo.CommitObject(commit)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve commit %s: %v", vibeerr.ErrGit, commit, err)
	}
	return c.Tree()
}

// BlobEqual reports whether data hashes to the same OID as the blob
// already stored at oid, without reading the stored blob back.
func BlobEqual(data []byte, oid plumbing.Hash) bool {
	return plumbing.ComputeHash(plumbing.BlobObject, data) == oid
}

// IsAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant, used by commit (component D's merge-in step) to verify a
// vibe ref is fast-forwardable before moving HEAD.
func (a *Adapter) IsAncestor(ancestor, descendant plumbing.Hash) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	ancestorCommit, err := a.repo.CommitObject(ancestor)
	if err != nil {
		return false, fmt.Errorf("%w: resolve commit %s: %v", vibeerr.ErrGit, ancestor, err)
	}
	descendantCommit, err := a.repo.CommitObject(descendant)
	if err != nil {
		return false, fmt.Errorf("%w: resolve commit %s: %v", vibeerr.ErrGit, descendant, err)
	}
	ok, err := ancestorCommit.IsAncestor(descendantCommit)
	if err != nil {
		return false, fmt.Errorf("%w: check ancestry %s -> %s: %v", vibeerr.ErrGit, ancestor, descendant, err)
	}
	return ok, nil
}

// AdvanceHead fast-forwards the branch HEAD currently points to (or HEAD
// itself, if detached) to commit. Used by commit (component D's
// merge-in step).
func (a *Adapter) AdvanceHead(commit plumbing.Hash) error {
	headRef, err := a.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return fmt.Errorf("%w: resolve HEAD: %v", vibeerr.ErrGit, err)
	}

	target := plumbing.HEAD
	if headRef.Type() == plumbing.SymbolicReference {
		target = headRef.Target()
	}
	return a.UpdateRef(string(target), commit)
}

// ResetWorktreeHard resets the repository's working tree to match
// commit, used by commit (component D) after fast-forwarding HEAD.
func (a *Adapter) ResetWorktreeHard(commit plumbing.Hash) error {
	wt, err := a.repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: open worktree: %v", vibeerr.ErrGit, err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: commit, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("%w: hard reset to %s: %v", vibeerr.ErrGit, commit, err)
	}
	return nil
}
