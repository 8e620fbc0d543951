package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/ipc"
)

var promoteCmd = &cobra.Command{
	Use:   "promote <id>",
	Short: "Write a session's dirty files into refs/vibes/<id>",
	Long: `promote hashes every dirty path into a blob, splices the results into
a tree over the session's base commit, and updates refs/vibes/<id> to
the resulting commit. It does not advance HEAD; run commit for that.`,
	Args: cobra.ExactArgs(1),
	RunE: runPromote,
}

func runPromote(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	id := args[0]
	resp, err := roundTrip(rp, ipc.Request{Type: ipc.ReqPromote, SessionID: id})
	if err != nil {
		return err
	}
	fmt.Printf("session %q promoted to refs/vibes/%s at %s\n", id, id, resp.CommitOID)
	return nil
}
