// Package commands implements the vibe CLI: a thin client that talks to
// a per-repository vibed daemon over its Unix domain IPC socket,
// starting the daemon on demand when a command needs one and it isn't
// already running.
package commands

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/getaifs/vibefs/internal/cli/prompt"
	"github.com/getaifs/vibefs/internal/daemon"
	"github.com/getaifs/vibefs/internal/ipc"
)

// Version is set by main from ldflags; every request carries it
// implicitly via the daemon's Pong/Status version handshake.
var Version = "dev"

const daemonReadyTimeout = 5 * time.Second

// repoPaths resolves the .vibe-relative paths a client needs to reach a
// repository's daemon, given the repository root.
type repoPaths struct {
	root    string
	vibeDir string
	socket  string
	pid     string
	log     string
}

func resolveRepoPaths(repo string) (repoPaths, error) {
	abs, err := filepath.Abs(repo)
	if err != nil {
		return repoPaths{}, fmt.Errorf("resolve repository path: %w", err)
	}
	vibeDir := filepath.Join(abs, ".vibe")
	return repoPaths{
		root:    abs,
		vibeDir: vibeDir,
		socket:  filepath.Join(vibeDir, "vibed.sock"),
		pid:     filepath.Join(vibeDir, "vibed.pid"),
		log:     filepath.Join(vibeDir, "vibed.log"),
	}, nil
}

// dial connects to the repository's daemon, starting it in the
// background first if it isn't already running.
func dial(rp repoPaths) (net.Conn, error) {
	if _, running := daemon.IsRunning(rp.pid); !running {
		if err := autostart(rp); err != nil {
			return nil, err
		}
		if err := waitForSocket(rp.socket, daemonReadyTimeout); err != nil {
			return nil, err
		}
	}

	conn, err := net.Dial("unix", rp.socket)
	if err != nil {
		return nil, fmt.Errorf("connect to vibed at %s: %w", rp.socket, err)
	}
	return conn, nil
}

func autostart(rp repoPaths) error {
	if _, err := os.Stat(rp.vibeDir); err != nil {
		return fmt.Errorf("%q is not a VibeFS repository, run `vibe init` first", rp.root)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve vibe executable: %w", err)
	}
	vibedPath := filepath.Join(filepath.Dir(executable), "vibed")
	if _, err := os.Stat(vibedPath); err != nil {
		vibedPath = "vibed" // fall back to $PATH
	}

	cmd := exec.Command(vibedPath, "--repo", rp.root, "--socket", rp.socket, "--pid-file", rp.pid, "--log-file", rp.log)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("start vibed: %w", err)
	}
	return nil
}

func waitForSocket(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("unix", path, 200*time.Millisecond)
		if err == nil {
			conn.Close()
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for vibed to become ready at %s", path)
}

// roundTrip dials the daemon, sends req, reads the one response it
// produces, and closes the connection.
func roundTrip(rp repoPaths, req ipc.Request) (ipc.Response, error) {
	conn, err := dial(rp)
	if err != nil {
		return ipc.Response{}, err
	}
	defer conn.Close()

	if err := ipc.WriteRequest(conn, req); err != nil {
		return ipc.Response{}, fmt.Errorf("send request to vibed: %w", err)
	}

	resp, err := ipc.ReadResponse(bufio.NewReader(conn))
	if err != nil {
		return ipc.Response{}, fmt.Errorf("read response from vibed: %w", err)
	}
	if resp.Type == ipc.RespError {
		return resp, fmt.Errorf("%s", resp.Message)
	}
	if resp.Version != "" && resp.Version != Version && Version != "dev" {
		return resp, fmt.Errorf("vibed version %q does not match vibe version %q, stop the daemon and restart it", resp.Version, Version)
	}
	return resp, nil
}

// confirmOrAbort prompts the user to confirm a destructive operation
// unless force is true. It returns proceed=false with a nil error if the
// user declines or aborts (Ctrl+C), so callers can return cleanly
// without printing an error for what is really just a change of mind.
func confirmOrAbort(label string, force bool) (bool, error) {
	confirmed, err := prompt.ConfirmWithForce(label, force)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("aborted")
			return false, nil
		}
		return false, err
	}
	if !confirmed {
		fmt.Println("aborted")
		return false, nil
	}
	return true, nil
}

// cmdContext is the background context every subcommand's IPC call uses;
// these are short-lived client requests with no cancellation surface of
// their own.
func cmdContext() context.Context {
	return context.Background()
}

// timestampLabel is the default snapshot/backup label when the user
// doesn't supply one: a timestamp for readability plus a short uuid
// suffix so two snapshots taken within the same second never collide.
func timestampLabel() string {
	suffix := uuid.New().String()[:8]
	return time.Now().UTC().Format("20060102-150405") + "-" + suffix
}
