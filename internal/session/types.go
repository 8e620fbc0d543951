// Package session implements VibeFS's session lifecycle: spawn, snapshot,
// promote, commit, rebase, restore, reset-hard, and close, plus the
// state machine that governs which of those transitions are valid.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/getaifs/vibefs/internal/metastore"
	"github.com/getaifs/vibefs/internal/overlay"
)

// State is one of a session's lifecycle states.
type State string

const (
	StateExported   State = "exported"
	StateUnexported State = "unexported"
)

// ServerHandle is the running NFS listener for one exported session. The
// session package depends on this interface rather than on
// internal/nfsserver directly, so the NFS wire layer stays a leaf: it
// depends on overlay.FileSystem, and nothing depends back on it except
// through this handle.
type ServerHandle interface {
	Port() int
	// Stop signals the listener to stop accepting and drain in-flight
	// requests, returning once it has fully stopped or ctx expires.
	Stop(ctx context.Context) error
}

// ServerFactory binds an ephemeral TCP listener and starts serving NFSv3
// plus MOUNT against fs under sessionID (used only for log attribution),
// returning a handle to it.
type ServerFactory func(sessionID string, fs overlay.FileSystem) (ServerHandle, error)

// Record is the durable, sidecar-persisted description of one session,
// matching the data model's Session Record.
type Record struct {
	ID         string        `json:"id"`
	BaseCommit string        `json:"base_commit"`
	DeltaDir   string        `json:"delta_dir"`
	MountPoint string        `json:"mount_point"`
	NFSPort    int           `json:"nfs_port"`
	CreatedAt  time.Time     `json:"created_at"`
	State      State         `json:"state"`
}

// Session is a live, in-memory session: its persisted Record plus the
// runtime handles needed to serve and mutate it.
type Session struct {
	Record Record

	store  *metastore.Store
	engine *overlay.Engine
	server ServerHandle

	mu sync.Mutex
}

// baseCommitHash parses the session's recorded base commit.
func (s *Session) baseCommitHash() plumbing.Hash {
	return plumbing.NewHash(s.Record.BaseCommit)
}
