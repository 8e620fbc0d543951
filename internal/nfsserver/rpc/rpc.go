// Package rpc implements the ONC RPC (RFC 5531) record-marking, call
// header, and reply framing that both the MOUNT and NFSv3 programs ride
// on. It speaks only AUTH_NULL and AUTH_UNIX — VibeFS serves a single
// local user, so RPCSEC_GSS and Kerberos pseudoflavors have no home here.
package rpc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Message types (RFC 5531 §9).
const (
	RPCCall  uint32 = 0
	RPCReply uint32 = 1
)

// Reply states.
const (
	RPCMsgAccepted uint32 = 0
	RPCMsgDenied   uint32 = 1
)

// Accept statuses.
const (
	RPCSuccess      uint32 = 0
	RPCProgUnavail  uint32 = 1
	RPCProgMismatch uint32 = 2
	RPCProcUnavail  uint32 = 3
	RPCGarbageArgs  uint32 = 4
	RPCSystemErr    uint32 = 5
)

// Authentication flavors (RFC 5531 §8.2).
const (
	AuthNull  uint32 = 0
	AuthUnix  uint32 = 1
	AuthShort uint32 = 2
	AuthDES   uint32 = 3
)

const maxFragmentSize = 1 << 20 // 1MB; VibeFS messages are tiny compared to this

// RPCCallMessage is a parsed RPC call header, with the auth body left
// undecoded (most calls arrive as AUTH_NULL or AUTH_UNIX; nothing in
// VibeFS decodes the credential body).
type RPCCallMessage struct {
	XID         uint32
	Program     uint32
	Version     uint32
	Procedure   uint32
	CredFlavor  uint32
	CredBody    []byte
	VerfFlavor  uint32
	VerfBody    []byte
	headerBytes int
}

// ReadFragment reads one complete RPC record from r, reassembling
// fragments per the "last fragment" bit in each 4-byte fragment header,
// and returns the concatenated payload.
func ReadFragment(r io.Reader) ([]byte, error) {
	var payload []byte
	for {
		var hdr [4]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, err
		}
		raw := binary.BigEndian.Uint32(hdr[:])
		last := raw&0x80000000 != 0
		length := raw & 0x7fffffff
		if length > maxFragmentSize {
			return nil, fmt.Errorf("rpc: fragment too large: %d bytes", length)
		}

		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		payload = append(payload, buf...)

		if last {
			return payload, nil
		}
	}
}

// WriteFragment frames payload as a single, final RPC fragment and
// writes it to w. VibeFS never splits a reply across fragments.
func WriteFragment(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload))|0x80000000)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadCall parses an RPC call header from the front of message, leaving
// the procedure-specific arguments for ReadData to extract.
func ReadCall(message []byte) (*RPCCallMessage, error) {
	r := bytes.NewReader(message)
	call := &RPCCallMessage{}

	var fields [6]uint32
	for i := range fields {
		if err := binary.Read(r, binary.BigEndian, &fields[i]); err != nil {
			return nil, fmt.Errorf("rpc: read call header: %w", err)
		}
	}
	call.XID = fields[0]
	msgType := fields[1]
	if msgType != RPCCall {
		return nil, fmt.Errorf("rpc: expected CALL message, got type %d", msgType)
	}
	// fields[2] is rpcvers, must be 2
	call.Program = fields[3]
	call.Version = fields[4]
	call.Procedure = fields[5]

	var err error
	call.CredFlavor, call.CredBody, err = readOpaqueAuth(r)
	if err != nil {
		return nil, fmt.Errorf("rpc: read cred: %w", err)
	}
	call.VerfFlavor, call.VerfBody, err = readOpaqueAuth(r)
	if err != nil {
		return nil, fmt.Errorf("rpc: read verf: %w", err)
	}

	call.headerBytes = len(message) - r.Len()
	return call, nil
}

// ReadData returns the procedure arguments that follow the header ReadCall
// already consumed.
func ReadData(message []byte, call *RPCCallMessage) ([]byte, error) {
	if call.headerBytes > len(message) {
		return nil, fmt.Errorf("rpc: header longer than message")
	}
	return message[call.headerBytes:], nil
}

// readOpaqueAuth reads one opaque_auth structure: a 4-byte flavor
// followed by a length-prefixed, 4-byte-padded opaque body.
func readOpaqueAuth(r *bytes.Reader) (uint32, []byte, error) {
	var flavor, length uint32
	if err := binary.Read(r, binary.BigEndian, &flavor); err != nil {
		return 0, nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return 0, nil, err
	}
	if length > 400 {
		return 0, nil, fmt.Errorf("opaque auth body too large: %d", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	if pad := (4 - length%4) % 4; pad > 0 {
		if _, err := r.Seek(int64(pad), io.SeekCurrent); err != nil {
			return 0, nil, err
		}
	}
	return flavor, body, nil
}

// MakeSuccessReply builds a complete, fragment-framed RPC reply carrying
// a successful call result: an AUTH_NULL verifier, MSG_ACCEPTED, and
// SUCCESS, followed by the XDR-encoded procedure result in body.
func MakeSuccessReply(xid uint32, body []byte) ([]byte, error) {
	return makeAcceptedReply(xid, RPCSuccess, body)
}

// MakeErrorReply builds an accepted reply carrying a non-SUCCESS accept
// status (PROG_UNAVAIL, PROC_UNAVAIL, GARBAGE_ARGS, SYSTEM_ERR), which
// per RFC 5531 carries no further result body.
func MakeErrorReply(xid uint32, acceptStat uint32) ([]byte, error) {
	return makeAcceptedReply(xid, acceptStat, nil)
}

// MakeProgMismatchReply builds a PROG_MISMATCH accepted reply, which
// uniquely among error replies carries the server's supported version
// range after the accept status.
func MakeProgMismatchReply(xid, low, high uint32) ([]byte, error) {
	if low > high {
		return nil, fmt.Errorf("rpc: invalid version range: low (%d) > high (%d)", low, high)
	}

	var buf bytes.Buffer
	writeAcceptedHeader(&buf, xid, RPCProgMismatch)
	_ = binary.Write(&buf, binary.BigEndian, low)
	_ = binary.Write(&buf, binary.BigEndian, high)

	return frame(buf.Bytes()), nil
}

func makeAcceptedReply(xid uint32, acceptStat uint32, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	writeAcceptedHeader(&buf, xid, acceptStat)
	if len(body) > 0 {
		buf.Write(body)
	}
	return frame(buf.Bytes()), nil
}

// writeAcceptedHeader writes XID, REPLY, MSG_ACCEPTED, an AUTH_NULL
// verifier, and the accept status — everything common to every accepted
// reply regardless of status.
func writeAcceptedHeader(buf *bytes.Buffer, xid, acceptStat uint32) {
	_ = binary.Write(buf, binary.BigEndian, xid)
	_ = binary.Write(buf, binary.BigEndian, RPCReply)
	_ = binary.Write(buf, binary.BigEndian, RPCMsgAccepted)
	_ = binary.Write(buf, binary.BigEndian, AuthNull)  // verifier flavor
	_ = binary.Write(buf, binary.BigEndian, uint32(0)) // verifier length
	_ = binary.Write(buf, binary.BigEndian, acceptStat)
}

// frame prepends the 4-byte fragment header marking payload as a single,
// final fragment.
func frame(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out[:4], uint32(len(payload))|0x80000000)
	copy(out[4:], payload)
	return out
}
