package ipc

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{Type: ReqExportSession, SessionID: "alice"}
	require.NoError(t, WriteRequest(&buf, req))

	r := NewReader(&buf)
	got, err := r.ReadRequest()
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	resp := Response{Type: RespSessionExported, SessionID: "alice", NFSPort: 20491, MountPoint: "/vibe/mounts/repo-alice"}
	require.NoError(t, WriteResponse(&buf, resp))

	got, err := ReadResponse(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, resp, got)
}

func TestReaderReturnsEOFOnClose(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.ReadRequest()
	require.ErrorIs(t, err, io.EOF)
}

func TestPongAndErrorHelpers(t *testing.T) {
	require.Equal(t, Response{Type: RespPong, Version: "1.2.3"}, Pong("1.2.3"))

	err := errTest{"boom"}
	resp := ErrorResponse(err)
	require.Equal(t, RespError, resp.Type)
	require.Equal(t, "boom", resp.Message)
}

type errTest struct{ msg string }

func (e errTest) Error() string { return e.msg }
