package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/ipc"
)

var snapshotLabel string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <id>",
	Short: "Copy-on-write snapshot a session's delta",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotLabel, "label", "", "snapshot label (default: a timestamp)")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	label := snapshotLabel
	if label == "" {
		label = timestampLabel()
	}

	id := args[0]
	resp, err := roundTrip(rp, ipc.Request{Type: ipc.ReqSnapshot, SessionID: id, Label: label})
	if err != nil {
		return err
	}
	fmt.Printf("snapshot taken: %s\n", resp.SnapshotPath)
	return nil
}
