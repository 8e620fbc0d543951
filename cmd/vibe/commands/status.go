package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/ipc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the daemon's version, repo, and session count",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	resp, err := roundTrip(rp, ipc.Request{Type: ipc.ReqStatus})
	if err != nil {
		return err
	}

	fmt.Printf("vibed %s\n", resp.Version)
	fmt.Printf("  repo:     %s\n", resp.RepoPath)
	fmt.Printf("  sessions: %d\n", resp.SessionCount)
	fmt.Printf("  uptime:   %ds\n", resp.UptimeSecs)
	return nil
}
