// Package mount implements the MOUNT program (RFC 1813 Appendix I),
// version 3, scoped to the single export VibeFS's NFS server advertises
// per session: no netgroups, no access lists, no Kerberos. A client that
// mounts anything other than the session's root path gets MNT3ERR_NOENT.
package mount

import (
	"bytes"
	"errors"

	"github.com/getaifs/vibefs/internal/nfsserver/xdr"
	"github.com/getaifs/vibefs/internal/overlay"
)

// ErrProcUnavail signals a procedure number this package doesn't
// implement, letting the caller reply PROC_UNAVAIL instead of a bodyless
// success.
var ErrProcUnavail = errors.New("mount: procedure unavailable")

// Program and version numbers (RFC 1813 Appendix I).
const (
	Program = 100005
	Version = 3
)

// Procedure numbers.
const (
	ProcNull    = 0
	ProcMnt     = 1
	ProcDump    = 2
	ProcUmnt    = 3
	ProcUmntAll = 4
	ProcExport  = 5
)

// MNT status codes (RFC 1813 §5.2.1), a subset of the NFS3 status space.
const (
	MntOK             uint32 = 0
	MntErrPerm        uint32 = 1
	MntErrNoEnt       uint32 = 2
	MntErrAcces       uint32 = 13
	MntErrNotDir      uint32 = 20
	MntErrServerFault uint32 = 10006
)

// Handler answers MOUNT procedures against one session's export.
// ExportPath is the only path clients are allowed to mount; a successful
// MNT always hands back overlay.RootInodeID as the root file handle.
type Handler struct {
	ExportPath string
}

// Dispatch routes one already-XDR-decoded MOUNT call to its procedure and
// returns the XDR-encoded result body (the RPC/reply framing is applied
// by the caller).
func (h *Handler) Dispatch(procedure uint32, args []byte) ([]byte, error) {
	switch procedure {
	case ProcNull:
		return nil, nil
	case ProcMnt:
		return h.mnt(args)
	case ProcUmnt, ProcUmntAll:
		return nil, nil // no client-list bookkeeping to clean up
	case ProcDump, ProcExport:
		return h.emptyList(), nil
	default:
		return nil, ErrProcUnavail
	}
}

// mnt decodes a dirpath argument and, if it matches the session's export
// path, returns MNT3_OK with the root file handle and an auth-flavor
// list holding AUTH_UNIX alone.
func (h *Handler) mnt(args []byte) ([]byte, error) {
	dirPath, _, err := xdr.ReadString(args)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if dirPath != h.ExportPath {
		writeUint32(&buf, MntErrNoEnt)
		return buf.Bytes(), nil
	}

	writeUint32(&buf, MntOK)
	xdr.WriteOpaque(&buf, xdr.EncodeHandle(overlay.RootInodeID))
	writeUint32(&buf, 1) // auth flavors: count
	writeUint32(&buf, 1) // AUTH_UNIX
	return buf.Bytes(), nil
}

// emptyList encodes an empty mountlist/exports XDR list: a single
// false "more entries follow" discriminant.
func (h *Handler) emptyList() []byte {
	var buf bytes.Buffer
	writeUint32(&buf, 0)
	return buf.Bytes()
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	tmp := make([]byte, 4)
	tmp[0] = byte(v >> 24)
	tmp[1] = byte(v >> 16)
	tmp[2] = byte(v >> 8)
	tmp[3] = byte(v)
	buf.Write(tmp)
}
