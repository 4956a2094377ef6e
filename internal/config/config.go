// Package config loads CLI defaults from an optional YAML file so
// repeated invocations of cmd/hytaleregion don't need every flag
// spelled out.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the CLI's adjustable defaults.
type Config struct {
	// Mode is "strict" or "lenient", mirroring region.Mode.
	Mode string `yaml:"mode"`
	// OutputDir is loaded and kept here, but cmd/hytaleregion does not
	// read it: output paths come from -o/--output or the CLI's own
	// default names.
	OutputDir string `yaml:"output_dir"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// Load reads path as YAML and overlays it on Defaults(). An empty path
// returns the defaults unchanged; a missing file is an error, since a
// caller that named a specific config path presumably expects it to
// exist.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Defaults returns the configuration used when no config file is
// present.
func Defaults() Config {
	return Config{
		Mode:      "strict",
		OutputDir: ".",
		LogLevel:  "info",
	}
}

// Validate rejects values Load has no sane fallback for.
func (c Config) Validate() error {
	switch c.Mode {
	case "strict", "lenient":
	default:
		return fmt.Errorf("mode must be \"strict\" or \"lenient\", got %q", c.Mode)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug/info/warn/error, got %q", c.LogLevel)
	}
	return nil
}
