package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/ipc"
)

var (
	restoreNoBackup   bool
	restoreBackupName string
	restoreForce      bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore <id> <snapshot>",
	Short: "Replace a session's delta with a prior snapshot",
	Long: `restore unmounts the session, optionally backs up its current state
under pre-restore-<label>, copies the named snapshot back into place,
rescans the restored tree (marking every regular file dirty, since the
whole state may differ from the session's base), and re-mounts it. The
session's current delta is overwritten; prompts for confirmation unless
--force is given.`,
	Args: cobra.ExactArgs(2),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreNoBackup, "no-backup", false, "skip backing up current state before restoring")
	restoreCmd.Flags().StringVar(&restoreBackupName, "backup-label", "", "label for the pre-restore backup (default: a timestamp)")
	restoreCmd.Flags().BoolVarP(&restoreForce, "force", "f", false, "skip the confirmation prompt")
}

func runRestore(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	id, snapshot := args[0], args[1]
	proceed, err := confirmOrAbort(fmt.Sprintf("restore session %q from snapshot %q, overwriting its current delta?", id, snapshot), restoreForce)
	if err != nil || !proceed {
		return err
	}

	label := restoreBackupName
	if label == "" {
		label = timestampLabel()
	}

	req := ipc.Request{
		Type:         ipc.ReqRestore,
		SessionID:    id,
		SnapshotName: snapshot,
		Backup:       !restoreNoBackup,
		BackupLabel:  label,
	}
	if _, err := roundTrip(rp, req); err != nil {
		return err
	}
	fmt.Printf("session %q restored from %s\n", id, snapshot)
	return nil
}
