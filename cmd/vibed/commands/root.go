// Package commands implements vibed's command-line surface: a single
// command that opens (or daemonizes) the background process serving
// one repository's sessions over a Unix domain socket.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/config"
	"github.com/getaifs/vibefs/internal/daemon"
	"github.com/getaifs/vibefs/internal/logger"
)

// Version, Commit, and Date are set by main from ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	repoPath   string
	foreground bool
	pidFile    string
	logFile    string
	socketFile string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "vibed",
	Short: "VibeFS background daemon",
	Long: `vibed serves one repository's VibeFS sessions: it owns the base
metadata store and git repository, spawns a dedicated NFSv3 server per
exported session, and answers the vibe CLI's requests over a Unix
domain socket.

By default vibed daemonizes (forks into the background). Use
--foreground to run it attached, e.g. under a process supervisor.`,
	RunE: runVibed,
}

func init() {
	rootCmd.Flags().StringVarP(&repoPath, "repo", "r", ".", "path to the git repository to serve")
	rootCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "run in foreground (don't daemonize)")
	rootCmd.Flags().StringVar(&pidFile, "pid-file", "", "path to PID file (default: <repo>/.vibe/vibed.pid)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "path to log file for daemon mode (default: <repo>/.vibe/vibed.log)")
	rootCmd.Flags().StringVar(&socketFile, "socket", "", "path to IPC socket (default: <repo>/.vibe/vibed.sock)")
	rootCmd.Flags().StringVar(&configFile, "config", "", "path to config file (default: $XDG_CONFIG_HOME/vibefs/config.yaml)")
}

// Execute runs the vibed root command.
func Execute() error {
	return rootCmd.Execute()
}

func runVibed(cmd *cobra.Command, args []string) error {
	repo, err := filepath.Abs(repoPath)
	if err != nil {
		return fmt.Errorf("resolve repository path: %w", err)
	}

	vibeDir := filepath.Join(repo, ".vibe")
	resolvedPID := pidFile
	if resolvedPID == "" {
		resolvedPID = filepath.Join(vibeDir, "vibed.pid")
	}
	resolvedLog := logFile
	if resolvedLog == "" {
		resolvedLog = filepath.Join(vibeDir, "vibed.log")
	}
	resolvedSocket := socketFile
	if resolvedSocket == "" {
		resolvedSocket = filepath.Join(vibeDir, "vibed.sock")
	}

	if !foreground {
		return startDaemon(repo, resolvedPID, resolvedLog, resolvedSocket)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// vibed is always scoped to a single repository: its socket and
	// PID file live inside that repository's .vibe directory rather
	// than the global runtime/state directories config.Load defaults
	// to for a multi-tenant daemon.
	cfg.Daemon.SocketPath = resolvedSocket
	cfg.Daemon.PidFile = resolvedPID

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := daemon.New(ctx, repo, cfg, Version)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("vibed received shutdown signal")
		d.Shutdown()
	}()

	return d.Run(ctx)
}
