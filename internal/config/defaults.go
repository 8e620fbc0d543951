package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ApplyDefaults fills in zero-valued fields with sensible defaults,
// following the same zero-value-replacement strategy dittofs's
// ApplyDefaults uses: explicit values are always preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyDaemonDefaults(&cfg.Daemon)
	applyStorageDefaults(&cfg.Storage)
	applyNFSDefaults(&cfg.NFS)

	if len(cfg.ArtifactDirs) == 0 {
		cfg.ArtifactDirs = defaultArtifactDirs()
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyDaemonDefaults(cfg *DaemonConfig) {
	runtimeDir := defaultRuntimeDir()

	if cfg.SocketPath == "" {
		cfg.SocketPath = filepath.Join(runtimeDir, "vibed.sock")
	}
	if cfg.PidFile == "" {
		cfg.PidFile = filepath.Join(runtimeDir, "vibed.pid")
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 10 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.MetadataPath == "" {
		cfg.MetadataPath = filepath.Join(defaultStateDir(), "metadata")
	}
	if cfg.DeltaRoot == "" {
		cfg.DeltaRoot = filepath.Join(defaultStateDir(), "sessions")
	}
	// RepoPath has no default — it must name the repository to serve.
}

func applyNFSDefaults(cfg *NFSConfig) {
	if cfg.PortRangeStart == 0 {
		cfg.PortRangeStart = 20490
	}
	if cfg.PortRangeEnd == 0 {
		cfg.PortRangeEnd = 20590
	}

	if cfg.Timeouts.Read == 0 {
		cfg.Timeouts.Read = 5 * time.Minute
	}
	if cfg.Timeouts.Write == 0 {
		cfg.Timeouts.Write = 30 * time.Second
	}
	if cfg.Timeouts.Idle == 0 {
		cfg.Timeouts.Idle = 5 * time.Minute
	}
	if cfg.Timeouts.Shutdown == 0 {
		cfg.Timeouts.Shutdown = 30 * time.Second
	}
}

func defaultArtifactDirs() []string {
	return []string{"node_modules", "target", ".venv", "__pycache__", ".next", ".nuxt", "dist", "build"}
}

func defaultRuntimeDir() string {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return filepath.Join(xdg, "vibefs")
	}
	return filepath.Join(os.TempDir(), "vibefs")
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "vibefs")
	}
	return filepath.Join(home, ".local", "share", "vibefs")
}

// GetDefaultConfig returns a Config with every default applied. Used
// when no config file exists and by `vibe init` to scaffold a starter
// file.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
