package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/cli/output"
	"github.com/getaifs/vibefs/internal/ipc"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List exported sessions",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

// sessionList renders an ipc.Response's Sessions as a table.
type sessionList []ipc.SessionSummary

// Headers implements output.TableRenderer.
func (sl sessionList) Headers() []string {
	return []string{"ID", "MOUNT POINT", "NFS PORT", "UPTIME"}
}

// Rows implements output.TableRenderer.
func (sl sessionList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		rows = append(rows, []string{
			s.ID, s.MountPoint, strconv.Itoa(s.NFSPort), fmt.Sprintf("%ds", s.UptimeSecs),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	resp, err := roundTrip(rp, ipc.Request{Type: ipc.ReqListSessions})
	if err != nil {
		return err
	}

	if len(resp.Sessions) == 0 {
		fmt.Println("no sessions exported")
		return nil
	}

	return output.PrintTable(os.Stdout, sessionList(resp.Sessions))
}
