package session

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// ChangeStatus classifies one dirty path against the session's base
// commit, for the CLI's diff/status renderer.
type ChangeStatus string

const (
	StatusAdded    ChangeStatus = "added"
	StatusModified ChangeStatus = "modified"
	StatusDeleted  ChangeStatus = "deleted"
)

// DiffEntry is one changed path and how it changed.
type DiffEntry struct {
	Path   string
	Status ChangeStatus
}

// DiffReport is the structured result of Manager.Diff. Rendering it as
// text is left to the CLI.
type DiffReport struct {
	SessionID  string
	BaseCommit string
	Entries    []DiffEntry
}

// Diff compares every dirty path in a session's delta directory against
// its base commit's blob at that path, classifying each as added,
// modified, or deleted.
func (m *Manager) Diff(ctx context.Context, id string) (DiffReport, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return DiffReport{}, fmt.Errorf("%w: session %q", vibeerr.ErrNotFound, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	dirtyPaths, err := sess.store.GetDirtyPaths(ctx)
	if err != nil {
		return DiffReport{}, err
	}

	baseCommit := sess.baseCommitHash()
	report := DiffReport{SessionID: id, BaseCommit: baseCommit.String()}

	for _, p := range dirtyPaths {
		full := filepath.Join(sess.Record.DeltaDir, p)
		deltaBytes, err := os.ReadFile(full)
		deleted := os.IsNotExist(err)
		if err != nil && !deleted {
			return DiffReport{}, fmt.Errorf("%w: read dirty file %q: %v", vibeerr.ErrIO, p, err)
		}

		baseBytes, existedAtBase, err := m.git.ReadFileAtCommit(baseCommit, p)
		if err != nil {
			return DiffReport{}, err
		}

		var status ChangeStatus
		switch {
		case deleted:
			status = StatusDeleted
		case !existedAtBase:
			status = StatusAdded
		case bytes.Equal(deltaBytes, baseBytes):
			continue
		default:
			status = StatusModified
		}
		report.Entries = append(report.Entries, DiffEntry{Path: p, Status: status})
	}
	return report, nil
}
