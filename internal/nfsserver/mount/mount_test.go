package mount

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/getaifs/vibefs/internal/nfsserver/xdr"
	"github.com/getaifs/vibefs/internal/overlay"
)

func encodeDirPath(p string) []byte {
	var buf bytes.Buffer
	xdr.WriteString(&buf, p)
	return buf.Bytes()
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func TestMntMatchingExportReturnsRootHandle(t *testing.T) {
	h := &Handler{ExportPath: "/vibe/alice"}

	reply, err := h.Dispatch(ProcMnt, encodeDirPath("/vibe/alice"))
	require.NoError(t, err)
	require.Equal(t, MntOK, beUint32(reply[0:4]))

	handle, _, err := xdr.ReadOpaque(reply[4:])
	require.NoError(t, err)
	id, err := xdr.DecodeHandle(handle)
	require.NoError(t, err)
	require.Equal(t, overlay.RootInodeID, id)
}

func TestMntWrongPathReturnsNoEnt(t *testing.T) {
	h := &Handler{ExportPath: "/vibe/alice"}

	reply, err := h.Dispatch(ProcMnt, encodeDirPath("/somewhere/else"))
	require.NoError(t, err)
	require.Equal(t, MntErrNoEnt, beUint32(reply[0:4]))
}

func TestUmntIsAcceptedWithNoBody(t *testing.T) {
	h := &Handler{ExportPath: "/vibe/alice"}

	reply, err := h.Dispatch(ProcUmnt, nil)
	require.NoError(t, err)
	require.Nil(t, reply)
}

func TestUnknownProcedureReturnsError(t *testing.T) {
	h := &Handler{ExportPath: "/vibe/alice"}

	_, err := h.Dispatch(99, nil)
	require.ErrorIs(t, err, ErrProcUnavail)
}
