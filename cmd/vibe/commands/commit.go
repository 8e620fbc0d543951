package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/ipc"
)

var commitCmd = &cobra.Command{
	Use:   "commit <id>",
	Short: "Fast-forward HEAD to a promoted session",
	Long: `commit fast-forwards HEAD to refs/vibes/<id> and resets the working
tree to match, then closes the session. It requires the session to have
been promoted and its promoted commit to be a descendant of HEAD; if
not, promote or rebase first.`,
	Args: cobra.ExactArgs(1),
	RunE: runCommit,
}

func runCommit(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	id := args[0]
	if _, err := roundTrip(rp, ipc.Request{Type: ipc.ReqCommit, SessionID: id}); err != nil {
		return err
	}
	fmt.Printf("HEAD fast-forwarded to session %q's promoted commit\n", id)
	return nil
}
