package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/getaifs/vibefs/internal/ipc"
	"github.com/getaifs/vibefs/internal/logger"
)

// handleConn serves one client connection's line-delimited IPC
// requests until it closes or sends a malformed line.
func (d *Daemon) handleConn(conn net.Conn) {
	defer conn.Close()

	reader := ipc.NewReader(conn)
	for {
		req, err := reader.ReadRequest()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("vibed ipc read failed", "error", err)
			}
			return
		}

		d.touch()
		resp := d.dispatch(context.Background(), req)

		if err := ipc.WriteResponse(conn, resp); err != nil {
			logger.Warn("vibed ipc write failed", "error", err)
			return
		}
	}
}

// dispatch resolves one request to a response, never returning an
// error itself: every failure becomes an ipc.RespError response so
// the connection stays usable for the caller's next request.
func (d *Daemon) dispatch(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Type {
	case ipc.ReqPing:
		return ipc.Pong(d.version)

	case ipc.ReqStatus:
		return ipc.Response{
			Type:         ipc.RespStatus,
			Version:      d.version,
			RepoPath:     d.repoRoot,
			SessionCount: len(d.mgr.List()),
			UptimeSecs:   int64(now().Sub(d.startTime).Seconds()),
		}

	case ipc.ReqExportSession:
		return d.exportSession(ctx, req.SessionID)

	case ipc.ReqUnexportSession:
		return d.unexportSession(ctx, req.SessionID)

	case ipc.ReqListSessions:
		return d.listSessions()

	case ipc.ReqPromote:
		return d.promote(ctx, req.SessionID)

	case ipc.ReqCommit:
		return d.commit(ctx, req.SessionID)

	case ipc.ReqRebase:
		return d.rebase(ctx, req.SessionID, req.Force)

	case ipc.ReqSnapshot:
		return d.snapshot(ctx, req.SessionID, req.Label)

	case ipc.ReqRestore:
		return d.restore(ctx, req.SessionID, req.SnapshotName, req.Backup, req.BackupLabel)

	case ipc.ReqResetHard:
		return d.resetHard(ctx, req.SessionID, req.Backup, req.BackupLabel)

	case ipc.ReqDiff:
		return d.diff(ctx, req.SessionID)

	case ipc.ReqShutdown:
		go d.Shutdown()
		return ipc.Response{Type: ipc.RespShuttingDown}

	default:
		return ipc.ErrorResponse(errUnknownRequest(req.Type))
	}
}

func (d *Daemon) exportSession(ctx context.Context, id string) ipc.Response {
	rec, err := d.mgr.Spawn(ctx, id)
	if err != nil {
		return ipc.ErrorResponse(err)
	}
	return ipc.Response{
		Type:       ipc.RespSessionExported,
		SessionID:  rec.ID,
		NFSPort:    rec.NFSPort,
		MountPoint: rec.MountPoint,
	}
}

func (d *Daemon) unexportSession(ctx context.Context, id string) ipc.Response {
	if err := d.mgr.Close(ctx, id); err != nil {
		return ipc.ErrorResponse(err)
	}
	return ipc.Response{Type: ipc.RespSessionUnexport, SessionID: id}
}

func (d *Daemon) promote(ctx context.Context, id string) ipc.Response {
	oid, err := d.mgr.Promote(ctx, id)
	if err != nil {
		return ipc.ErrorResponse(err)
	}
	return ipc.Response{Type: ipc.RespPromoted, SessionID: id, CommitOID: oid.String()}
}

func (d *Daemon) commit(ctx context.Context, id string) ipc.Response {
	if err := d.mgr.Commit(ctx, id); err != nil {
		return ipc.ErrorResponse(err)
	}
	return ipc.Response{Type: ipc.RespCommitted, SessionID: id}
}

func (d *Daemon) rebase(ctx context.Context, id string, force bool) ipc.Response {
	result, err := d.mgr.Rebase(ctx, id, force)
	if err != nil {
		return ipc.ErrorResponse(err)
	}
	return ipc.Response{
		Type:      ipc.RespRebased,
		SessionID: id,
		OldBase:   result.OldBase,
		NewBase:   result.NewBase,
		AlreadyAt: result.AlreadyAt,
		Conflicts: result.Conflicts,
	}
}

func (d *Daemon) snapshot(ctx context.Context, id, label string) ipc.Response {
	path, err := d.mgr.Snapshot(ctx, id, label)
	if err != nil {
		return ipc.ErrorResponse(err)
	}
	return ipc.Response{Type: ipc.RespSnapshotted, SessionID: id, SnapshotPath: path}
}

func (d *Daemon) restore(ctx context.Context, id, snapshotName string, backup bool, backupLabel string) ipc.Response {
	if err := d.mgr.Restore(ctx, id, snapshotName, backup, backupLabel); err != nil {
		return ipc.ErrorResponse(err)
	}
	return ipc.Response{Type: ipc.RespRestored, SessionID: id}
}

func (d *Daemon) resetHard(ctx context.Context, id string, backup bool, backupLabel string) ipc.Response {
	if err := d.mgr.ResetHard(ctx, id, backup, backupLabel); err != nil {
		return ipc.ErrorResponse(err)
	}
	return ipc.Response{Type: ipc.RespResetDone, SessionID: id}
}

func (d *Daemon) diff(ctx context.Context, id string) ipc.Response {
	report, err := d.mgr.Diff(ctx, id)
	if err != nil {
		return ipc.ErrorResponse(err)
	}
	entries := make([]ipc.DiffEntry, 0, len(report.Entries))
	for _, e := range report.Entries {
		entries = append(entries, ipc.DiffEntry{Path: e.Path, Status: string(e.Status)})
	}
	return ipc.Response{
		Type:       ipc.RespDiff,
		SessionID:  id,
		BaseCommit: report.BaseCommit,
		Entries:    entries,
	}
}

func (d *Daemon) listSessions() ipc.Response {
	records := d.mgr.List()
	summaries := make([]ipc.SessionSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, ipc.SessionSummary{
			ID:         rec.ID,
			MountPoint: rec.MountPoint,
			NFSPort:    rec.NFSPort,
			UptimeSecs: int64(time.Since(rec.CreatedAt).Seconds()),
		})
	}
	return ipc.Response{Type: ipc.RespSessions, Sessions: summaries}
}

type errUnknownRequest ipc.RequestType

func (e errUnknownRequest) Error() string {
	return "unknown request type: " + string(e)
}
