package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/ipc"
)

var rebaseForce bool

var rebaseCmd = &cobra.Command{
	Use:   "rebase <id>",
	Short: "Move a session's base commit to current HEAD",
	Long: `rebase updates a session's base commit to HEAD without touching its
delta bytes. If any dirty path was also changed in git between the old
base and the new HEAD, rebase reports the conflicting paths and refuses
to proceed unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runRebase,
}

func init() {
	rebaseCmd.Flags().BoolVar(&rebaseForce, "force", false, "rebase even if conflicting paths were found")
}

func runRebase(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	id := args[0]
	resp, err := roundTrip(rp, ipc.Request{Type: ipc.ReqRebase, SessionID: id, Force: rebaseForce})
	if err != nil {
		return err
	}

	if resp.AlreadyAt {
		fmt.Printf("session %q is already based on %s\n", id, resp.NewBase)
		return nil
	}
	if len(resp.Conflicts) > 0 && !rebaseForce {
		fmt.Printf("session %q has %d conflicting path(s) changed both in git and in the session since %s:\n", id, len(resp.Conflicts), resp.OldBase)
		for _, p := range resp.Conflicts {
			fmt.Printf("  %s\n", p)
		}
		fmt.Println("re-run with --force to rebase anyway")
		return nil
	}
	fmt.Printf("session %q rebased from %s to %s\n", id, resp.OldBase, resp.NewBase)
	return nil
}
