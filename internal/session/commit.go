package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// Commit fast-forwards HEAD to refs/vibes/<id> and resets the working
// tree to match. It requires that the ref exists and is a descendant of
// HEAD; if the ref is missing, the caller is directed to promote first,
// and if it is not fast-forwardable, to rebase.
func (m *Manager) Commit(ctx context.Context, id string) error {
	refName := "refs/vibes/" + id
	vibeCommit, ok, err := m.git.GetRef(refName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: session %q has not been promoted, run promote first", vibeerr.ErrNotFound, id)
	}

	headCommit, err := m.git.HeadCommit()
	if err != nil {
		return err
	}
	if headCommit == vibeCommit {
		return nil
	}

	ff, err := m.git.IsAncestor(headCommit, vibeCommit)
	if err != nil {
		return err
	}
	if !ff {
		return fmt.Errorf("%w: session %q's promoted commit is not a descendant of HEAD, run rebase first", vibeerr.ErrUnsupported, id)
	}

	if err := m.git.AdvanceHead(vibeCommit); err != nil {
		return err
	}
	if err := m.git.ResetWorktreeHard(vibeCommit); err != nil {
		return err
	}

	if sess, ok := m.Get(id); ok {
		if closeErr := m.Close(ctx, sess.Record.ID); closeErr != nil && !errors.Is(closeErr, vibeerr.ErrNotFound) {
			return closeErr
		}
	}
	return nil
}
