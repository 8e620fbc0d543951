package commands

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/ipc"
	"github.com/getaifs/vibefs/internal/names"
)

var spawnID string

var spawnCmd = &cobra.Command{
	Use:   "spawn [id]",
	Short: "Export a new session, serving it over NFS",
	Long: `spawn clones the base metadata store, captures HEAD as the session's
base commit, binds a dedicated NFSv3 server, creates a per-session
mount point directory, and prints the mount_nfs command to mount it
there; spawn does not mount it. Calling spawn again with the same id is
idempotent and returns the existing session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSpawn,
}

func init() {
	spawnCmd.Flags().StringVar(&spawnID, "id", "", "session id (default: a generated adjective-noun name)")
}

func runSpawn(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	id := spawnID
	if len(args) == 1 {
		id = args[0]
	}
	if id == "" {
		id = names.Generate(rand.Uint64())
	}

	resp, err := roundTrip(rp, ipc.Request{Type: ipc.ReqExportSession, SessionID: id})
	if err != nil {
		return err
	}

	fmt.Printf("session %q exported\n", resp.SessionID)
	fmt.Printf("  mount point: %s\n", resp.MountPoint)
	fmt.Printf("  nfs port:    %d\n", resp.NFSPort)
	fmt.Printf("  mount with:  mount_nfs -o port=%d,mountport=%d,tcp 127.0.0.1:/ %s\n", resp.NFSPort, resp.NFSPort, resp.MountPoint)
	return nil
}
