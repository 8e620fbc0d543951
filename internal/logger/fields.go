package logger

import "log/slog"

// Standard field keys for structured logging across the daemon, the
// overlay engine, and the NFS server. Use these consistently so log
// lines from different components can be joined on session_id/path.
const (
	// Session & lifecycle
	KeySessionID = "session_id" // session name, e.g. "lucky-otter"
	KeyState     = "state"      // session state: spawned, exported, unexported, closed
	KeyBaseOID   = "base_oid"   // base commit hash the session was spawned from
	KeyHeadOID   = "head_oid"   // current HEAD commit hash after commit/rebase
	KeySnapOID   = "snapshot"   // snapshot identifier

	// NFSv3 / RPC
	KeyProcedure  = "procedure"   // NFSv3 procedure name: READ, WRITE, LOOKUP, etc.
	KeyXID        = "xid"         // RPC transaction ID
	KeyHandle     = "handle"      // NFS file handle, hex-encoded
	KeyStatus     = "status"      // NFSv3 status code (NFS3_OK, NFS3ERR_*)
	KeyClientIP   = "client_ip"   // client IP address
	KeyClientPort = "client_port" // client source port

	// Filesystem operations
	KeyPath       = "path"        // overlay-relative path
	KeyParentPath = "parent_path" // parent directory path
	KeyInodeID    = "inode_id"    // inode identifier
	KeyOffset     = "offset"      // read/write byte offset
	KeyCount      = "count"       // bytes requested
	KeyBytes      = "bytes"       // bytes actually transferred
	KeyDirty      = "dirty"       // number of dirty paths

	// Auth (AUTH_UNIX credential)
	KeyUID = "uid"
	KeyGID = "gid"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyComponent  = "component" // gitadapter, metastore, overlay, nfsserver, daemon, ipc
)

// Err returns a slog.Attr for an error, or a zero Attr (omitted) if nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// SessionID returns a slog.Attr for the session name.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Path returns a slog.Attr for an overlay-relative path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Procedure returns a slog.Attr for an NFSv3 procedure name.
func Procedure(name string) slog.Attr {
	return slog.String(KeyProcedure, name)
}

// InodeID returns a slog.Attr for an inode identifier.
func InodeID(id uint64) slog.Attr {
	return slog.Uint64(KeyInodeID, id)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
