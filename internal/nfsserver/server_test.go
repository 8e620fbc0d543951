package nfsserver

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/getaifs/vibefs/internal/nfsserver/mount"
	"github.com/getaifs/vibefs/internal/nfsserver/rpc"
	"github.com/getaifs/vibefs/internal/nfsserver/v3"
	"github.com/getaifs/vibefs/internal/overlay"
	"github.com/getaifs/vibefs/internal/vibeerr"
)

// memFS is a minimal in-memory overlay.FileSystem with a root directory
// and nothing else, enough to drive a MNT + NULL round trip over a real
// socket.
type memFS struct{}

func (memFS) Lookup(ctx context.Context, parentID uint64, name string) (uint64, overlay.Attr, error) {
	return 0, overlay.Attr{}, vibeerr.ErrNotFound
}
func (memFS) GetAttr(ctx context.Context, inodeID uint64) (overlay.Attr, error) {
	return overlay.Attr{InodeID: overlay.RootInodeID, Type: overlay.NodeDir, Mode: 0o755}, nil
}
func (memFS) SetAttr(ctx context.Context, inodeID uint64) (overlay.Attr, error) {
	return overlay.Attr{}, nil
}
func (memFS) Read(ctx context.Context, inodeID uint64, offset int64, count int) ([]byte, bool, error) {
	return nil, true, nil
}
func (memFS) Write(ctx context.Context, inodeID uint64, offset int64, data []byte, now int64) (overlay.Attr, error) {
	return overlay.Attr{}, nil
}
func (memFS) Create(ctx context.Context, parentID uint64, name string, now int64) (uint64, overlay.Attr, error) {
	return 0, overlay.Attr{}, vibeerr.ErrUnsupported
}
func (memFS) Mkdir(ctx context.Context, parentID uint64, name string, now int64) (uint64, overlay.Attr, error) {
	return 0, overlay.Attr{}, vibeerr.ErrUnsupported
}
func (memFS) Remove(ctx context.Context, parentID uint64, name string) error {
	return vibeerr.ErrNotFound
}
func (memFS) Readdir(ctx context.Context, dirID uint64) ([]overlay.DirEntry, error) {
	return nil, nil
}

func encodeRPCCall(xid, program, version, procedure uint32, args []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, xid)
	_ = binary.Write(&buf, binary.BigEndian, rpc.RPCCall)
	_ = binary.Write(&buf, binary.BigEndian, uint32(2))
	_ = binary.Write(&buf, binary.BigEndian, program)
	_ = binary.Write(&buf, binary.BigEndian, version)
	_ = binary.Write(&buf, binary.BigEndian, procedure)
	_ = binary.Write(&buf, binary.BigEndian, rpc.AuthNull)
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))
	_ = binary.Write(&buf, binary.BigEndian, rpc.AuthNull)
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))
	buf.Write(args)
	return buf.Bytes()
}

func sendAndReceive(t *testing.T, conn net.Conn, message []byte) []byte {
	t.Helper()
	require.NoError(t, rpc.WriteFragment(conn, message))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	reply, err := rpc.ReadFragment(conn)
	require.NoError(t, err)
	return reply
}

func TestServerMountNullRoundTrip(t *testing.T) {
	srv, err := New("alice", "/vibe/alice", memFS{})
	require.NoError(t, err)
	defer srv.Stop(context.Background())

	conn, err := net.Dial("tcp", srv.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	reply := sendAndReceive(t, conn, encodeRPCCall(1, mount.Program, mount.Version, mount.ProcNull, nil))
	require.Equal(t, uint32(1), binary.BigEndian.Uint32(reply[0:4]))
	require.Equal(t, rpc.RPCReply, binary.BigEndian.Uint32(reply[4:8]))
}

func TestServerV3NullRoundTrip(t *testing.T) {
	srv, err := New("alice", "/vibe/alice", memFS{})
	require.NoError(t, err)
	defer srv.Stop(context.Background())

	conn, err := net.Dial("tcp", srv.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	reply := sendAndReceive(t, conn, encodeRPCCall(2, v3.Program, v3.Version, v3.ProcNull, nil))
	require.Equal(t, uint32(2), binary.BigEndian.Uint32(reply[0:4]))
}

func TestServerUnknownProgramReturnsProgUnavail(t *testing.T) {
	srv, err := New("alice", "/vibe/alice", memFS{})
	require.NoError(t, err)
	defer srv.Stop(context.Background())

	conn, err := net.Dial("tcp", srv.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	reply := sendAndReceive(t, conn, encodeRPCCall(3, 999999, 1, 0, nil))
	// MakeErrorReply layout: xid, msgtype, reply_stat, verf flavor, verf len, accept_stat, so accept_stat is at [20:24]
	require.Equal(t, rpc.RPCProgUnavail, binary.BigEndian.Uint32(reply[20:24]))
}

func TestServerPortIsBound(t *testing.T) {
	srv, err := New("alice", "/vibe/alice", memFS{})
	require.NoError(t, err)
	defer srv.Stop(context.Background())

	require.Greater(t, srv.Port(), 0)
}
