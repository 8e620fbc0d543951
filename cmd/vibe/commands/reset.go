package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/ipc"
)

var (
	resetNoBackup   bool
	resetBackupName string
	resetForce      bool
)

var resetCmd = &cobra.Command{
	Use:   "reset-hard <id>",
	Short: "Discard all of a session's changes",
	Long: `reset-hard wipes a session's delta directory and re-clones a clean
overlay of its base commit, leaving the base commit itself unchanged.
Unless --no-backup is given, the current state is snapshotted first
under pre-reset-<label>. Prompts for confirmation unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetNoBackup, "no-backup", false, "skip backing up current state before resetting")
	resetCmd.Flags().StringVar(&resetBackupName, "backup-label", "", "label for the pre-reset backup (default: a timestamp)")
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	id := args[0]
	proceed, err := confirmOrAbort(fmt.Sprintf("reset session %q to its base commit, discarding all its changes?", id), resetForce)
	if err != nil || !proceed {
		return err
	}

	label := resetBackupName
	if label == "" {
		label = timestampLabel()
	}

	req := ipc.Request{
		Type:        ipc.ReqResetHard,
		SessionID:   id,
		Backup:      !resetNoBackup,
		BackupLabel: label,
	}
	if _, err := roundTrip(rp, req); err != nil {
		return err
	}
	fmt.Printf("session %q reset to its base commit\n", id)
	return nil
}
