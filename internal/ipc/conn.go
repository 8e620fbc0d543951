package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// Reader reads one newline-delimited JSON value per call, reusing a
// single buffered scanner across a connection's lifetime.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r for reading line-delimited IPC messages.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// ReadRequest reads and decodes the next request line. It returns
// io.EOF once the peer closes the connection.
func (r *Reader) ReadRequest() (Request, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return Request{}, err
		}
		return Request{}, io.EOF
	}

	var req Request
	if err := json.Unmarshal(r.scanner.Bytes(), &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", vibeerr.ErrProtocol, err)
	}
	return req, nil
}

// WriteResponse encodes resp as one JSON line terminated with "\n".
func WriteResponse(w io.Writer, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteRequest encodes req as one JSON line terminated with "\n", used
// by CLI clients talking to the daemon.
func WriteRequest(w io.Writer, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// ReadResponse reads and decodes a single response line, used by CLI
// clients after issuing a request.
func ReadResponse(r *bufio.Reader) (Response, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return Response{}, err
	}

	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", vibeerr.ErrProtocol, err)
	}
	return resp, nil
}
