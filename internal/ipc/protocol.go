// Package ipc defines the line-delimited JSON protocol the CLI and the
// daemon speak over a Unix domain socket, one request and one response
// per line, mirroring the request/response shape the daemon's Rust
// predecessor used (serde's internally-tagged enums become a single
// struct with a Type discriminator and omitempty fields, the idiomatic
// Go rendering of that pattern).
package ipc

// RequestType discriminates the daemon's IPC request variants.
type RequestType string

const (
	ReqPing            RequestType = "Ping"
	ReqStatus          RequestType = "Status"
	ReqExportSession   RequestType = "ExportSession"
	ReqUnexportSession RequestType = "UnexportSession"
	ReqListSessions    RequestType = "ListSessions"
	ReqShutdown        RequestType = "Shutdown"

	// These mutate a live session's git/delta state, which only exists
	// in the daemon's in-memory session table, so — like
	// ExportSession/UnexportSession — they are dispatched against it
	// rather than performed by a transient CLI process.
	ReqPromote   RequestType = "Promote"
	ReqCommit    RequestType = "Commit"
	ReqRebase    RequestType = "Rebase"
	ReqSnapshot  RequestType = "Snapshot"
	ReqRestore   RequestType = "Restore"
	ReqResetHard RequestType = "ResetHard"
	ReqDiff      RequestType = "Diff"
)

// Request is one line of client-to-daemon traffic. Fields beyond Type
// and SessionID are only meaningful for the request variant that names
// them in its own doc comment.
type Request struct {
	Type      RequestType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`

	// Rebase
	Force bool `json:"force,omitempty"`

	// Snapshot
	Label string `json:"label,omitempty"`

	// Restore
	SnapshotName string `json:"snapshot_name,omitempty"`

	// Restore, ResetHard: back up current state before mutating, under
	// BackupLabel.
	Backup      bool   `json:"backup,omitempty"`
	BackupLabel string `json:"backup_label,omitempty"`
}

// ResponseType discriminates the daemon's IPC response variants.
type ResponseType string

const (
	RespPong            ResponseType = "Pong"
	RespStatus          ResponseType = "Status"
	RespSessionExported ResponseType = "SessionExported"
	RespSessionUnexport ResponseType = "SessionUnexported"
	RespSessions        ResponseType = "Sessions"
	RespShuttingDown    ResponseType = "ShuttingDown"
	RespError           ResponseType = "Error"

	RespPromoted    ResponseType = "Promoted"
	RespCommitted   ResponseType = "Committed"
	RespRebased     ResponseType = "Rebased"
	RespSnapshotted ResponseType = "Snapshotted"
	RespRestored    ResponseType = "Restored"
	RespResetDone   ResponseType = "ResetDone"
	RespDiff        ResponseType = "Diff"
)

// SessionSummary is one entry in a Sessions response, matching what
// `vibe list` renders per session.
type SessionSummary struct {
	ID         string `json:"id"`
	MountPoint string `json:"mount_point"`
	NFSPort    int    `json:"nfs_port"`
	UptimeSecs int64  `json:"uptime_secs"`
}

// DiffEntry is one changed path in a Diff response.
type DiffEntry struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// Response is one line of daemon-to-client traffic. Only the fields
// relevant to Type are populated; the rest are their zero value and
// omitted from the wire encoding.
type Response struct {
	Type ResponseType `json:"type"`

	// Pong / Status
	Version string `json:"version,omitempty"`

	// Status
	RepoPath     string `json:"repo_path,omitempty"`
	SessionCount int    `json:"session_count,omitempty"`
	UptimeSecs   int64  `json:"uptime_secs,omitempty"`

	// SessionExported / SessionUnexported
	SessionID  string `json:"session_id,omitempty"`
	NFSPort    int    `json:"nfs_port,omitempty"`
	MountPoint string `json:"mount_point,omitempty"`

	// Sessions
	Sessions []SessionSummary `json:"sessions,omitempty"`

	// Promoted
	CommitOID string `json:"commit_oid,omitempty"`

	// Rebased
	OldBase   string   `json:"old_base,omitempty"`
	NewBase   string   `json:"new_base,omitempty"`
	AlreadyAt bool     `json:"already_at,omitempty"`
	Conflicts []string `json:"conflicts,omitempty"`

	// Snapshotted
	SnapshotPath string `json:"snapshot_path,omitempty"`

	// Diff
	BaseCommit string      `json:"base_commit,omitempty"`
	Entries    []DiffEntry `json:"entries,omitempty"`

	// Error
	Message string `json:"message,omitempty"`
}

// Pong builds a Pong response carrying the daemon's version string.
func Pong(version string) Response {
	return Response{Type: RespPong, Version: version}
}

// ErrorResponse builds an Error response wrapping err's message, the
// catch-all failure path for every request type.
func ErrorResponse(err error) Response {
	return Response{Type: RespError, Message: err.Error()}
}
