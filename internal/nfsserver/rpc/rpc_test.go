package rpc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeCall(xid, program, version, procedure uint32) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, xid)
	_ = binary.Write(buf, binary.BigEndian, RPCCall)
	_ = binary.Write(buf, binary.BigEndian, uint32(2)) // rpcvers
	_ = binary.Write(buf, binary.BigEndian, program)
	_ = binary.Write(buf, binary.BigEndian, version)
	_ = binary.Write(buf, binary.BigEndian, procedure)
	// AUTH_NULL cred
	_ = binary.Write(buf, binary.BigEndian, AuthNull)
	_ = binary.Write(buf, binary.BigEndian, uint32(0))
	// AUTH_NULL verf
	_ = binary.Write(buf, binary.BigEndian, AuthNull)
	_ = binary.Write(buf, binary.BigEndian, uint32(0))
	return buf.Bytes()
}

func TestReadCallParsesHeader(t *testing.T) {
	message := encodeCall(42, 100003, 3, 1)
	message = append(message, []byte("payload")...)

	call, err := ReadCall(message)
	require.NoError(t, err)
	require.Equal(t, uint32(42), call.XID)
	require.Equal(t, uint32(100003), call.Program)
	require.Equal(t, uint32(3), call.Version)
	require.Equal(t, uint32(1), call.Procedure)

	data, err := ReadData(message, call)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestReadCallRejectsReplyMessage(t *testing.T) {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, uint32(1))
	_ = binary.Write(buf, binary.BigEndian, RPCReply)

	_, err := ReadCall(buf.Bytes())
	require.Error(t, err)
}

func TestFragmentRoundTrip(t *testing.T) {
	payload := []byte("hello nfs")

	var wire bytes.Buffer
	require.NoError(t, WriteFragment(&wire, payload))

	got, err := ReadFragment(&wire)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestMakeSuccessReplyFramesBody(t *testing.T) {
	body := []byte{0, 0, 0, 0}
	reply, err := MakeSuccessReply(7, body)
	require.NoError(t, err)

	payload, err := ReadFragment(bytes.NewReader(reply))
	require.NoError(t, err)

	require.Equal(t, uint32(7), binary.BigEndian.Uint32(payload[0:4]))
	require.Equal(t, RPCReply, binary.BigEndian.Uint32(payload[4:8]))
	require.Equal(t, RPCMsgAccepted, binary.BigEndian.Uint32(payload[8:12]))
}

func TestMakeProgMismatchReplyRejectsInvertedRange(t *testing.T) {
	_, err := MakeProgMismatchReply(1, 4, 2)
	require.Error(t, err)
}

func TestMakeProgMismatchReplyEncodesVersionRange(t *testing.T) {
	reply, err := MakeProgMismatchReply(9, 2, 3)
	require.NoError(t, err)

	payload, err := ReadFragment(bytes.NewReader(reply))
	require.NoError(t, err)

	// xid, msgtype, reply_stat, verf flavor+len, accept_stat, low, high
	require.Equal(t, RPCProgMismatch, binary.BigEndian.Uint32(payload[20:24]))
	require.Equal(t, uint32(2), binary.BigEndian.Uint32(payload[24:28]))
	require.Equal(t, uint32(3), binary.BigEndian.Uint32(payload[28:32]))
}
