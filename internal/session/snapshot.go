package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// Snapshot makes a copy-on-write clone of a session's delta directory
// (metadata included, since it lives inside the delta directory), named
// "<id>_snapshot_<label>". It never mutates an existing snapshot.
func (m *Manager) Snapshot(ctx context.Context, id, label string) (string, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: session %q", vibeerr.ErrNotFound, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	snapshotDir := filepath.Join(m.sessionsDir, fmt.Sprintf("%s_snapshot_%s", id, label))
	if _, err := os.Stat(snapshotDir); err == nil {
		return "", fmt.Errorf("%w: snapshot %q", vibeerr.ErrAlreadyExists, snapshotDir)
	}

	if err := copyDirCOW(sess.Record.DeltaDir, snapshotDir); err != nil {
		return "", err
	}
	return snapshotDir, nil
}

// copyDirCOW copies src to dst using the host filesystem's copy-on-write
// primitive where available (`cp --reflink=auto`), falling back to a
// plain recursive byte copy when the tool or filesystem doesn't support it.
func copyDirCOW(src, dst string) error {
	cmd := exec.Command("cp", "--reflink=auto", "-a", src, dst)
	if err := cmd.Run(); err == nil {
		return nil
	}

	if err := deepCopyDir(src, dst); err != nil {
		return fmt.Errorf("%w: copy %q to %q: %v", vibeerr.ErrIO, src, dst, err)
	}
	return nil
}

func deepCopyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			linkTarget, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(linkTarget, target)
		case info.IsDir():
			return os.MkdirAll(target, info.Mode())
		default:
			return copyFile(path, target, info.Mode())
		}
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
