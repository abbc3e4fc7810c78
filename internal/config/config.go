// Package config loads server-level settings for the language server itself
// (as opposed to the per-workspace mdbase.yaml collection settings, which are
// owned by internal/schema). It follows the same flag-plus-environment
// pattern the teacher's cmd/docbuilder/main.go uses, with YAML as the file
// format (gopkg.in/yaml.v3, as the teacher uses throughout internal/config).
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds server-wide settings that are not specific to any one
// workspace/collection.
type Config struct {
	// DebounceWindow is how long the diagnostics pipeline waits after the
	// last did_change before publishing (§4.7). Default 300ms.
	DebounceWindow time.Duration `yaml:"debounce_window"`

	// PositionEncoding is the unit used for Position.Character; the core
	// spec assumes utf-16 throughout (§6).
	PositionEncoding string `yaml:"position_encoding"`

	// MetricsAddr, if non-empty, serves Prometheus metrics at this address
	// (e.g. "127.0.0.1:9109"). Empty disables the metrics listener.
	MetricsAddr string `yaml:"metrics_addr"`

	// RebuildInterval is the period of the background full-index-rebuild
	// safety net (SPEC_FULL §D.2). Zero disables it.
	RebuildInterval time.Duration `yaml:"rebuild_interval"`

	// WatchFilesystem enables the external fsnotify-backed watch over the
	// workspace root (SPEC_FULL §D.3).
	WatchFilesystem bool `yaml:"watch_filesystem"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		DebounceWindow:   300 * time.Millisecond,
		PositionEncoding: "utf-16",
		MetricsAddr:      "",
		RebuildInterval:  10 * time.Minute,
		WatchFilesystem:  true,
	}
}

// Load reads server configuration from path, falling back to defaults for
// any field the file does not set, and never failing just because the file
// is absent. A ".env" file in the current directory is loaded first (if
// present) so MDBASE_LSP_LOG and similar variables can be set for local
// development, mirroring how docbuilder loads environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 300 * time.Millisecond
	}
	if cfg.PositionEncoding == "" {
		cfg.PositionEncoding = "utf-16"
	}
	return cfg, nil
}
