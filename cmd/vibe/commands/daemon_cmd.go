package commands

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	vibedaemon "github.com/getaifs/vibefs/internal/daemon"
	"github.com/getaifs/vibefs/internal/ipc"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the repository's vibed daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start vibed for this repository if it isn't already running",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask vibed to shut down",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

var daemonPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check whether vibed is running and answering",
	Args:  cobra.NoArgs,
	RunE:  runDaemonPing,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonPingCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}
	if _, running := vibedaemon.IsRunning(rp.pid); running {
		fmt.Println("vibed is already running")
		return nil
	}
	if err := autostart(rp); err != nil {
		return err
	}
	if err := waitForSocket(rp.socket, daemonReadyTimeout); err != nil {
		return err
	}
	fmt.Println("vibed started")
	return nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	pid, running := vibedaemon.IsRunning(rp.pid)
	if !running {
		fmt.Println("vibed is not running")
		return nil
	}

	resp, err := roundTrip(rp, ipc.Request{Type: ipc.ReqShutdown})
	if err == nil && resp.Type == ipc.RespShuttingDown {
		fmt.Println("vibed is shutting down")
		return nil
	}

	// The daemon isn't answering IPC (e.g. it's wedged); fall back to
	// signaling its process directly.
	process, findErr := os.FindProcess(pid)
	if findErr != nil {
		return fmt.Errorf("find vibed process %d: %w", pid, findErr)
	}
	if sigErr := process.Signal(syscall.SIGTERM); sigErr != nil {
		return fmt.Errorf("signal vibed process %d: %w", pid, sigErr)
	}
	fmt.Printf("sent SIGTERM to vibed process %d\n", pid)
	return nil
}

func runDaemonPing(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	if _, running := vibedaemon.IsRunning(rp.pid); !running {
		fmt.Println("vibed is not running")
		return nil
	}

	start := time.Now()
	resp, err := roundTrip(rp, ipc.Request{Type: ipc.ReqPing})
	if err != nil {
		return err
	}
	fmt.Printf("pong from vibed %s (%s)\n", resp.Version, time.Since(start).Round(time.Millisecond))
	return nil
}
