package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Commit and Date are set by main from ldflags, alongside Version.
var (
	Commit = "none"
	Date   = "unknown"
)

var repoFlag string

var rootCmd = &cobra.Command{
	Use:   "vibe",
	Short: "Per-agent virtual Git workspaces over NFS",
	Long: `vibe spawns isolated, NFS-mounted copy-on-write workspaces against
a Git repository, each backed by its own vibed session, so an agent can
read and write files without ever touching the real working tree until
it promotes or commits its changes back.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&repoFlag, "repo", "r", ".", "path to the git repository")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(spawnCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(rebaseCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the vibe root command.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("vibe %s (commit %s, built %s)\n", Version, Commit, Date)
		return nil
	},
}
