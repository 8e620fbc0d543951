// Package vibeerr defines the sentinel error taxonomy shared by every
// VibeFS component: the overlay engine, the session manager, the daemon,
// and the CLI all wrap one of these with fmt.Errorf("...: %w", ...) and
// callers unwrap with errors.Is.
package vibeerr

import "errors"

var (
	// ErrNotFound covers a missing inode, path, session, or ref.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists covers creating a file, directory or snapshot
	// whose name is already taken. Exporting a session that is already
	// exported is not an error: spawn returns the existing session.
	ErrAlreadyExists = errors.New("already exists")

	// ErrIO covers disk read/write failures.
	ErrIO = errors.New("io error")

	// ErrGit covers git object adapter failures: missing blob, failed
	// ref update, malformed tree.
	ErrGit = errors.New("git error")

	// ErrProtocol covers a malformed IPC request.
	ErrProtocol = errors.New("protocol error")

	// ErrVersionMismatch covers a CLI/daemon version incompatibility.
	ErrVersionMismatch = errors.New("version mismatch")

	// ErrBusy covers a daemon start refused because one is already
	// running.
	ErrBusy = errors.New("busy")

	// ErrUnsupported covers an operation explicitly not implemented,
	// such as symlink creation through the overlay or rename.
	ErrUnsupported = errors.New("unsupported")
)
