// Package config loads VibeFS daemon configuration from a YAML file,
// environment variables, and built-in defaults, following the same
// viper/mapstructure precedence chain dittofs uses for its server config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the VibeFS daemon configuration.
//
// Sources, highest precedence first:
//  1. Environment variables (VIBED_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Daemon controls the daemon process itself: its IPC socket, pidfile,
	// and idle-shutdown behavior.
	Daemon DaemonConfig `mapstructure:"daemon" yaml:"daemon"`

	// Storage controls where the daemon keeps the base git repository,
	// the metadata database, and per-session delta directories.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// NFS controls the per-session NFSv3 server.
	NFS NFSConfig `mapstructure:"nfs" yaml:"nfs"`

	// ArtifactDirs lists directory basenames whose contents are
	// materialized as symlinks outside the overlay instead of being
	// tracked byte-for-byte (build outputs, dependency caches).
	ArtifactDirs []string `mapstructure:"artifact_dirs" yaml:"artifact_dirs"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// DaemonConfig controls the daemon process.
type DaemonConfig struct {
	// SocketPath is the Unix domain socket the daemon listens on for IPC.
	SocketPath string `mapstructure:"socket_path" yaml:"socket_path"`

	// PidFile records the daemon's process ID so a second `vibe daemon
	// start` can detect a live daemon versus a stale file.
	PidFile string `mapstructure:"pid_file" yaml:"pid_file"`

	// IdleTimeout is how long the daemon runs with zero active sessions
	// before shutting itself down.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout bounds how long graceful shutdown waits for
	// in-flight NFS requests and IPC calls to drain.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// StorageConfig controls on-disk layout.
type StorageConfig struct {
	// RepoPath is the bare or non-bare git repository every session is
	// spawned from.
	RepoPath string `mapstructure:"repo_path" yaml:"repo_path"`

	// MetadataPath is not read by the daemon: the base metadata store is
	// always <repo>/.vibe/metadata.db and each session's store lives
	// inside that session's delta directory.
	MetadataPath string `mapstructure:"metadata_path" yaml:"metadata_path"`

	// DeltaRoot is not read by the daemon: delta directories are always
	// created under <repo>/.vibe/sessions and scratch artifact
	// directories under the system temp directory.
	DeltaRoot string `mapstructure:"delta_root" yaml:"delta_root"`
}

// NFSConfig controls the per-session NFSv3 server.
type NFSConfig struct {
	// PortRangeStart and PortRangeEnd are not read by the daemon: each
	// session's NFS listener binds a kernel-chosen ephemeral port on
	// 127.0.0.1.
	PortRangeStart int `mapstructure:"port_range_start" yaml:"port_range_start"`

	// PortRangeEnd is not read by the daemon; see PortRangeStart.
	PortRangeEnd int `mapstructure:"port_range_end" yaml:"port_range_end"`

	Timeouts NFSTimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
}

// NFSTimeoutsConfig mirrors the teacher's per-connection timeout knobs.
// The NFS server does not read these fields; its connection loop uses a
// fixed idle deadline.
type NFSTimeoutsConfig struct {
	Read     time.Duration `mapstructure:"read" yaml:"read"`
	Write    time.Duration `mapstructure:"write" yaml:"write"`
	Idle     time.Duration `mapstructure:"idle" yaml:"idle"`
	Shutdown time.Duration `mapstructure:"shutdown" yaml:"shutdown"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !found {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// SaveConfig writes cfg to path as YAML, creating parent directories as
// needed. Used by `vibe init` to scaffold a starter config file.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("VIBED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.AddConfigPath(GetConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// GetConfigDir returns the directory VibeFS looks for config.yaml in,
// honoring XDG_CONFIG_HOME and falling back to ~/.config/vibefs.
func GetConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vibefs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "vibefs")
}

// GetDefaultConfigPath returns the default config file path.
func GetDefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
