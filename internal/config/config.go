package config

import (
	"compress/flate"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate and Load for unusable settings.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	// CompressionLevel is a compress/flate level for deflated entries.
	CompressionLevel int    `yaml:"compression_level"`
	LogLevel         string `yaml:"log_level"`
	NoColor          bool   `yaml:"no_color"`
	// OutputDir receives derived archive names; explicit names are not affected.
	OutputDir string `yaml:"output_dir,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		CompressionLevel: flate.DefaultCompression,
		LogLevel:         "warn",
	}
}

func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "." // Fallback to current directory
	}
	return filepath.Join(home, ".oeb2epub", "config.yaml")
}

// Load reads the config at path, or at ConfigPath when path is empty.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.OutputDir = ExpandPath(cfg.OutputDir)

	return cfg, nil
}

// Validate checks the compression and log levels.
func (c *Config) Validate() error {
	if c.CompressionLevel < flate.DefaultCompression || c.CompressionLevel > flate.BestCompression {
		return fmt.Errorf("%w: compression_level %d out of range %d..%d",
			ErrInvalid, c.CompressionLevel, flate.DefaultCompression, flate.BestCompression)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path // Return unexpanded if home unavailable
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
