// Package nfsserver binds an ephemeral TCP listener per session and
// serves both the MOUNT and NFSv3 programs on it, multiplexed by RPC
// program number the way a real portmap-registered server would be,
// except VibeFS skips portmap entirely: the daemon hands the bound port
// straight to the client over IPC.
package nfsserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/getaifs/vibefs/internal/logger"
	"github.com/getaifs/vibefs/internal/nfsserver/mount"
	"github.com/getaifs/vibefs/internal/nfsserver/rpc"
	"github.com/getaifs/vibefs/internal/nfsserver/v3"
	"github.com/getaifs/vibefs/internal/overlay"
)

// maxConcurrentRequests bounds how many connections' requests this
// server processes at once; each connection still serializes its own
// requests, matching NFS's expectation of in-order completion per
// client.
const maxConcurrentRequests = 64

const idleTimeout = 10 * time.Minute

// Server is one session's NFSv3+MOUNT listener.
type Server struct {
	listener net.Listener
	mount    *mount.Handler
	v3       *v3.Handler

	sem chan struct{}
	wg  sync.WaitGroup

	mu       sync.Mutex
	shutdown bool
}

// New binds an ephemeral TCP port on localhost and starts serving
// exportPath's filesystem as both the MOUNT export and the NFSv3 root,
// under sessionID for logging. It returns once the listener is bound;
// the accept loop runs in a background goroutine.
func New(sessionID, exportPath string, fs overlay.FileSystem) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("bind nfs listener: %w", err)
	}

	s := &Server{
		listener: ln,
		mount:    &mount.Handler{ExportPath: exportPath},
		v3:       &v3.Handler{FS: fs, SessionID: sessionID},
		sem:      make(chan struct{}, maxConcurrentRequests),
	}

	go s.acceptLoop()
	return s, nil
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Stop closes the listener and waits for in-flight connections to
// drain, or for ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	if err := s.listener.Close(); err != nil {
		logger.Warn("nfs listener close failed", "error", err)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isShutdown() {
				return
			}
			logger.Warn("nfs accept failed", "error", err)
			return
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// serveConn processes one client connection's requests strictly in
// order: NFS clients depend on each call completing before the next is
// issued, so there is no benefit to — and real risk in — reordering
// requests within a connection.
func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	for {
		if s.isShutdown() {
			return
		}

		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		message, err := rpc.ReadFragment(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debugf("nfs connection closed: %v", err)
			}
			return
		}

		s.sem <- struct{}{}
		reply := s.handleMessage(message)
		<-s.sem

		if reply == nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(idleTimeout))
		if _, err := conn.Write(reply); err != nil {
			logger.Warn("nfs write reply failed", "error", err)
			return
		}
	}
}

// handleMessage decodes one RPC call, dispatches it to the MOUNT or
// NFSv3 program, and frames the result as a complete RPC reply.
func (s *Server) handleMessage(message []byte) []byte {
	call, err := rpc.ReadCall(message)
	if err != nil {
		logger.Warn("nfs malformed rpc call", "error", err)
		return nil
	}

	args, err := rpc.ReadData(message, call)
	if err != nil {
		logger.Warn("nfs malformed rpc args", "xid", call.XID, "error", err)
		reply, _ := rpc.MakeErrorReply(call.XID, rpc.RPCGarbageArgs)
		return reply
	}

	ctx := logger.WithContext(context.Background(), logger.NewLogContext(s.v3.SessionID))

	var body []byte
	var procErr error
	switch call.Program {
	case mount.Program:
		if call.Version != mount.Version {
			reply, _ := rpc.MakeProgMismatchReply(call.XID, mount.Version, mount.Version)
			return reply
		}
		body, procErr = s.mount.Dispatch(call.Procedure, args)
	case v3.Program:
		if call.Version != v3.Version {
			reply, _ := rpc.MakeProgMismatchReply(call.XID, v3.Version, v3.Version)
			return reply
		}
		body, procErr = s.v3.Dispatch(ctx, call.Procedure, args)
	default:
		reply, _ := rpc.MakeErrorReply(call.XID, rpc.RPCProgUnavail)
		return reply
	}

	if procErr != nil {
		logger.Warn("nfs procedure unavailable", "program", call.Program, "procedure", call.Procedure, "error", procErr)
		reply, _ := rpc.MakeErrorReply(call.XID, rpc.RPCProcUnavail)
		return reply
	}

	reply, err := rpc.MakeSuccessReply(call.XID, body)
	if err != nil {
		logger.Error("nfs reply encode failed", "error", err)
		return nil
	}
	return reply
}
