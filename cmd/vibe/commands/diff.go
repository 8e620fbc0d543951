package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/ipc"
)

var diffCmd = &cobra.Command{
	Use:   "diff <id>",
	Short: "Show a session's changed paths against its base commit",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	id := args[0]
	resp, err := roundTrip(rp, ipc.Request{Type: ipc.ReqDiff, SessionID: id})
	if err != nil {
		return err
	}

	if len(resp.Entries) == 0 {
		fmt.Printf("session %q has no changes against %s\n", id, resp.BaseCommit)
		return nil
	}

	statusGlyph := map[string]string{"added": "A", "modified": "M", "deleted": "D"}
	for _, e := range resp.Entries {
		glyph := statusGlyph[e.Status]
		if glyph == "" {
			glyph = "?"
		}
		fmt.Printf("%s  %s\n", glyph, e.Path)
	}
	return nil
}
