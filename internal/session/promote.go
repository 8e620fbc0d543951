package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/getaifs/vibefs/internal/gitadapter"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

var promoteAuthor = object.Signature{Name: "vibefs", Email: "vibefs@localhost"}

// Promote hashes every dirty file into a blob, splices the results into
// a tree built over the session's base commit, creates a commit with
// that tree (parented on the base commit), and updates
// refs/vibes/<id> to it. It does not advance HEAD.
func (m *Manager) Promote(ctx context.Context, id string) (plumbing.Hash, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return plumbing.ZeroHash, fmt.Errorf("%w: session %q", vibeerr.ErrNotFound, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	dirtyPaths, err := sess.store.GetDirtyPaths(ctx)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	baseCommit := sess.baseCommitHash()
	tb, err := gitadapter.NewTreeBuilder(m.git, baseCommit)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	for _, p := range dirtyPaths {
		full := filepath.Join(sess.Record.DeltaDir, p)
		data, err := os.ReadFile(full)
		if os.IsNotExist(err) {
			tb.Remove(p)
			continue
		}
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("%w: read dirty file %q: %v", vibeerr.ErrIO, p, err)
		}
		oid, err := m.git.WriteBlob(data)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		tb.Put(p, oid, filemode.Regular)
	}

	treeOID, err := tb.Flush()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	author := promoteAuthor
	author.When = now()
	message := fmt.Sprintf("Vibe promotion: %s\n\nPromoted changes from vibe session", id)
	commitOID, err := m.git.CreateCommit(treeOID, []plumbing.Hash{baseCommit}, message, author)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	refName := "refs/vibes/" + id
	if err := m.git.UpdateRef(refName, commitOID); err != nil {
		return plumbing.ZeroHash, err
	}

	return commitOID, nil
}
