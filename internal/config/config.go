package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given and the file exists.
const DefaultFile = "lighthouse.yaml"

// Config holds all configuration for lighthouse.
// It is immutable after creation via Load().
type Config struct {
	// LogLevel controls log verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Runtime configures the connection to the container runtime
	Runtime RuntimeConfig `yaml:"runtime"`

	// Server configures the HTTP API
	Server ServerConfig `yaml:"server"`

	// Build configures image builds from git repositories
	Build BuildConfig `yaml:"build"`
}

// RuntimeConfig identifies the runtime endpoint and lifecycle defaults.
type RuntimeConfig struct {
	// Host overrides DOCKER_HOST, e.g. "unix:///var/run/docker.sock"
	Host string `yaml:"host"`

	// APIVersion pins the Engine API version; negotiated when empty
	APIVersion string `yaml:"api_version"`

	// ConnectTimeout bounds the startup ping
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// StopTimeout is how long Stop waits before the runtime kills the container
	StopTimeout time.Duration `yaml:"stop_timeout"`

	// KillSignal is sent by Kill
	KillSignal string `yaml:"kill_signal"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	// Listen is the address the API binds to
	Listen string `yaml:"listen"`

	// ProxyDomain enables name-based proxying to <container>.<ProxyDomain>.
	// Empty disables the proxy.
	ProxyDomain string `yaml:"proxy_domain"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BuildConfig controls builds from source.
type BuildConfig struct {
	// WorkDir is where repositories are cloned; the system temp dir when empty
	WorkDir string `yaml:"work_dir"`
}

// Load builds the configuration: defaults, then the YAML file, then the
// environment (including a .env file in the working directory).
// An explicit path must exist; the default file is optional.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	file, explicit := path, path != ""
	if !explicit {
		file = DefaultFile
	}
	if err := loadFile(cfg, file); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}
