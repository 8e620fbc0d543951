package session

import (
	"context"
	"fmt"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// RebaseResult reports what Rebase did, including any conflicting paths
// it found, so the CLI can render the warning the spec calls for.
type RebaseResult struct {
	OldBase   string
	NewBase   string
	AlreadyAt bool
	Conflicts []string
}

// Rebase updates a session's base commit to current HEAD. If any path
// the session has modified was also changed in Git between the old base
// and the new HEAD, it reports the conflict and refuses to proceed
// unless force is set. Delta bytes are never touched.
func (m *Manager) Rebase(ctx context.Context, id string, force bool) (RebaseResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return RebaseResult{}, fmt.Errorf("%w: session %q", vibeerr.ErrNotFound, id)
	}

	headCommit, err := m.git.HeadCommit()
	if err != nil {
		return RebaseResult{}, err
	}
	oldBase := sess.baseCommitHash()

	if headCommit == oldBase {
		return RebaseResult{OldBase: oldBase.String(), NewBase: headCommit.String(), AlreadyAt: true}, nil
	}

	dirtyPaths, err := sess.store.GetDirtyPaths(ctx)
	if err != nil {
		return RebaseResult{}, err
	}

	var conflicts []string
	if len(dirtyPaths) > 0 {
		changed, err := m.git.DiffPaths(oldBase, headCommit)
		if err != nil {
			return RebaseResult{}, err
		}
		changedSet := make(map[string]bool, len(changed))
		for _, p := range changed {
			changedSet[p] = true
		}
		for _, p := range dirtyPaths {
			if changedSet[p] {
				conflicts = append(conflicts, p)
			}
		}
	}

	result := RebaseResult{OldBase: oldBase.String(), NewBase: headCommit.String(), Conflicts: conflicts}
	if len(conflicts) > 0 && !force {
		return result, nil
	}

	if err := syncSessionToCommit(ctx, sess.store, m.git, oldBase, headCommit); err != nil {
		return result, err
	}

	sess.Record.BaseCommit = headCommit.String()
	if err := m.saveRecord(sess.Record); err != nil {
		return result, err
	}
	return result, nil
}
