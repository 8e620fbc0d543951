package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/ipc"
)

var closeForce bool

var closeCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Unexport a session and delete its delta",
	Long: `close stops the session's NFS server, removes the delta directory
and the mount point directory, and drops the session record. It does not
unmount anything mounted at the mount point. The session's promoted commits
under refs/vibes/<id> (if any) are untouched. Prompts for confirmation
unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runClose,
}

func init() {
	closeCmd.Flags().BoolVarP(&closeForce, "force", "f", false, "skip the confirmation prompt")
}

func runClose(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	id := args[0]
	proceed, err := confirmOrAbort(fmt.Sprintf("close session %q and delete its delta?", id), closeForce)
	if err != nil || !proceed {
		return err
	}

	if _, err := roundTrip(rp, ipc.Request{Type: ipc.ReqUnexportSession, SessionID: id}); err != nil {
		return err
	}
	fmt.Printf("session %q closed\n", id)
	return nil
}
