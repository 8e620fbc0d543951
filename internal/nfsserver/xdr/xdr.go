// Package xdr holds the NFSv3 wire encoding helpers shared by the mount
// and v3 procedure handlers: file handle packing, fattr3 rendering, and
// the status-code mapping from VibeFS's sentinel errors to NFS3 status
// values.
package xdr

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/getaifs/vibefs/internal/logger"
	"github.com/getaifs/vibefs/internal/overlay"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

// NFS3 status codes (RFC 1813 §2.6), a subset of the full status space;
// MapErrorToStatus produces only some of them.
const (
	NFS3OK             uint32 = 0
	NFS3ErrPerm        uint32 = 1
	NFS3ErrNoEnt       uint32 = 2
	NFS3ErrIO          uint32 = 5
	NFS3ErrAcces       uint32 = 13
	NFS3ErrExist       uint32 = 17
	NFS3ErrNotDir      uint32 = 20
	NFS3ErrIsDir       uint32 = 21
	NFS3ErrFBig        uint32 = 27
	NFS3ErrNoSpc       uint32 = 28
	NFS3ErrRofs        uint32 = 30
	NFS3ErrNameTooLong uint32 = 63
	NFS3ErrNotEmpty    uint32 = 66
	NFS3ErrStale       uint32 = 70
	NFS3ErrBadHandle   uint32 = 10001
	NFS3ErrNotSupp     uint32 = 10004
	NFS3ErrServerFault uint32 = 10006
)

// File types (RFC 1813 §2.5).
const (
	NF3Reg  uint32 = 1
	NF3Dir  uint32 = 2
	NF3Lnk  uint32 = 5
)

// FileHandleSize is the fixed length VibeFS uses for its opaque file
// handles: an 8-byte big-endian inode ID, zero-padded out to NFSv3's
// maximum of 64 bytes so every handle round-trips unchanged regardless
// of client padding conventions.
const FileHandleSize = 64

// EncodeHandle packs an inode ID into a fixed-size opaque file handle.
func EncodeHandle(inodeID uint64) []byte {
	buf := make([]byte, FileHandleSize)
	binary.BigEndian.PutUint64(buf[:8], inodeID)
	return buf
}

// DecodeHandle unpacks a fixed-size opaque file handle back into an
// inode ID, rejecting anything that isn't one VibeFS minted.
func DecodeHandle(fh []byte) (uint64, error) {
	if len(fh) < 8 {
		return 0, errors.New("xdr: file handle too short")
	}
	for _, b := range fh[8:] {
		if b != 0 {
			return 0, errors.New("xdr: unrecognized file handle padding")
		}
	}
	return binary.BigEndian.Uint64(fh[:8]), nil
}

// MapErrorToStatus translates a VibeFS sentinel error into the NFS3
// status code a client expects, logging server-side faults at a higher
// level than ordinary client-visible conditions (missing path, name
// collision) since only the former indicates something is actually
// wrong with the daemon.
func MapErrorToStatus(err error, op string) uint32 {
	if err == nil {
		return NFS3OK
	}

	switch {
	case errors.Is(err, vibeerr.ErrNotFound):
		return NFS3ErrNoEnt
	case errors.Is(err, vibeerr.ErrAlreadyExists):
		return NFS3ErrExist
	case errors.Is(err, vibeerr.ErrUnsupported):
		logger.Warn("nfs operation not supported", "op", op, "error", err)
		return NFS3ErrNotSupp
	case errors.Is(err, vibeerr.ErrIO):
		logger.Error("nfs io error", "op", op, "error", err)
		return NFS3ErrIO
	case errors.Is(err, vibeerr.ErrGit):
		logger.Error("nfs git backend error", "op", op, "error", err)
		return NFS3ErrServerFault
	default:
		logger.Error("nfs unexpected error", "op", op, "error", err)
		return NFS3ErrServerFault
	}
}

// FileType maps an overlay node type to its NFS3 ftype3 value.
func FileType(t overlay.NodeType) uint32 {
	if t == overlay.NodeDir {
		return NF3Dir
	}
	return NF3Reg
}

// EncodeFattr3 writes one fattr3 structure (RFC 1813 §2.5.5) for attr,
// in the fixed 84-byte layout every NFS3 response embeds it in.
func EncodeFattr3(buf *bytes.Buffer, attr overlay.Attr) {
	write32(buf, FileType(attr.Type))
	write32(buf, attr.Mode)
	write32(buf, 1) // nlink: VibeFS doesn't track hard links
	write32(buf, attr.UID)
	write32(buf, attr.GID)
	write64(buf, attr.Size)
	write64(buf, attr.Size) // used: no sparse-file accounting
	write32(buf, 0)         // rdev.specdata1
	write32(buf, 0)         // rdev.specdata2
	write64(buf, 0)         // fsid
	write64(buf, attr.InodeID)
	writeNFSTime(buf, attr.Mtime) // atime
	writeNFSTime(buf, attr.Mtime) // mtime
	writeNFSTime(buf, attr.Mtime) // ctime
}

// EncodePostOpAttr writes a post_op_attr union: present=true followed by
// the fattr3, matching every handler's "attributes, if we have them"
// convention.
func EncodePostOpAttr(buf *bytes.Buffer, attr overlay.Attr) {
	write32(buf, 1)
	EncodeFattr3(buf, attr)
}

// EncodeAbsentPostOpAttr writes a post_op_attr union with no attributes,
// used when an operation fails before a fresh Attr is available.
func EncodeAbsentPostOpAttr(buf *bytes.Buffer) {
	write32(buf, 0)
}

// EncodeWccData writes a wcc_data (pre_op_attr + post_op_attr) with no
// pre-op attributes — VibeFS doesn't snapshot an entry's attributes
// before mutating it, so every wcc_data's "before" half is absent.
func EncodeWccData(buf *bytes.Buffer, after *overlay.Attr) {
	write32(buf, 0) // pre_op_attr: absent
	if after == nil {
		EncodeAbsentPostOpAttr(buf)
		return
	}
	EncodePostOpAttr(buf, *after)
}

func writeNFSTime(buf *bytes.Buffer, unixSeconds int64) {
	write32(buf, uint32(unixSeconds))
	write32(buf, 0)
}

func write32(buf *bytes.Buffer, v uint32) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func write64(buf *bytes.Buffer, v uint64) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

// WriteOpaque writes an XDR-encoded opaque<> field: a 4-byte length
// followed by the bytes and padding out to a 4-byte boundary.
func WriteOpaque(buf *bytes.Buffer, data []byte) {
	write32(buf, uint32(len(data)))
	buf.Write(data)
	if pad := (4 - len(data)%4) % 4; pad > 0 {
		buf.Write(make([]byte, pad))
	}
}

// WriteString writes an XDR string<> field using the same opaque
// encoding as WriteOpaque.
func WriteString(buf *bytes.Buffer, s string) {
	WriteOpaque(buf, []byte(s))
}

// ReadOpaque reads one length-prefixed, 4-byte-padded opaque field from
// the front of data, returning the field's bytes and the remainder.
func ReadOpaque(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("xdr: truncated opaque length")
	}
	length := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < length {
		return nil, nil, errors.New("xdr: truncated opaque body")
	}
	field := data[:length]
	rest := data[length:]
	pad := (4 - length%4) % 4
	if uint32(len(rest)) < pad {
		return nil, nil, errors.New("xdr: truncated opaque padding")
	}
	return field, rest[pad:], nil
}

// ReadString reads one XDR string<> field, identical on the wire to
// ReadOpaque.
func ReadString(data []byte) (string, []byte, error) {
	field, rest, err := ReadOpaque(data)
	if err != nil {
		return "", nil, err
	}
	return string(field), rest, nil
}

// ReadUint32 reads a single big-endian uint32 from the front of data.
func ReadUint32(data []byte) (uint32, []byte, error) {
	if len(data) < 4 {
		return 0, nil, errors.New("xdr: truncated uint32")
	}
	return binary.BigEndian.Uint32(data[:4]), data[4:], nil
}

// ReadUint64 reads a single big-endian uint64 from the front of data.
func ReadUint64(data []byte) (uint64, []byte, error) {
	if len(data) < 8 {
		return 0, nil, errors.New("xdr: truncated uint64")
	}
	return binary.BigEndian.Uint64(data[:8]), data[8:], nil
}
