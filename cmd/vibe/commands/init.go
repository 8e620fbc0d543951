package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/getaifs/vibefs/internal/config"
	"github.com/getaifs/vibefs/internal/overlay"
	"github.com/getaifs/vibefs/internal/session"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize VibeFS for a git repository",
	Long: `init scans the repository's HEAD commit and seeds the base metadata
store with one inode per tracked file, creating the .vibe directory
structure that every subsequent spawn clones from. It does not start
vibed; the daemon starts itself the first time a command needs it.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	rp, err := resolveRepoPaths(repoFlag)
	if err != nil {
		return err
	}

	fmt.Printf("Initializing VibeFS for repository at: %s\n", rp.root)

	noServer := func(sessionID string, fs overlay.FileSystem) (session.ServerHandle, error) {
		return nil, fmt.Errorf("vibe init never spawns sessions")
	}

	cfg := config.GetDefaultConfig()
	mgr, err := session.New(cmdContext(), rp.root, cfg.ArtifactDirs, noServer)
	if err != nil {
		return fmt.Errorf("initialize base metadata store: %w", err)
	}
	defer mgr.Shutdown(cmdContext())

	configPath := filepath.Join(rp.vibeDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg.Storage.RepoPath = rp.root
		if err := config.SaveConfig(cfg, configPath); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}

	fmt.Println("VibeFS initialized successfully")
	fmt.Printf("  metadata store: %s\n", filepath.Join(rp.vibeDir, "metadata.db"))
	fmt.Printf("  sessions dir:   %s\n", filepath.Join(rp.vibeDir, "sessions"))
	fmt.Printf("  config:         %s\n", configPath)
	return nil
}
