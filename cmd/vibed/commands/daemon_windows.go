//go:build windows

package commands

import "fmt"

// startDaemon is not supported on Windows.
// Use --foreground to run vibed attached instead.
func startDaemon(repo, pidPath, logPath, socketPath string) error {
	return fmt.Errorf("daemon mode is not supported on Windows, use --foreground")
}
