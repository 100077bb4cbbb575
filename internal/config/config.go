// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration.
type Config struct {
	Convert       ConvertConfig       `toml:"convert"`
	Watch         WatchConfig         `toml:"watch"`
	History       HistoryConfig       `toml:"history"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// ConvertConfig holds converter invocation settings.
type ConvertConfig struct {
	CwebpPath     string `toml:"cwebp_path"`
	MaxConcurrent int    `toml:"max_concurrent"`
	Preset        string `toml:"preset"`
	PresetFile    string `toml:"preset_file"`
	SkipExisting  bool   `toml:"skip_existing"`
	Verbose       bool   `toml:"verbose"`
}

// WatchConfig holds watch-mode settings.
type WatchConfig struct {
	DebounceMs int    `toml:"debounce_ms"`
	RescanCron string `toml:"rescan_cron"`
}

// HistoryConfig holds batch-journal settings.
type HistoryConfig struct {
	DatabasePath string `toml:"database_path"`
	Disabled     bool   `toml:"disabled"`
}

// NotificationsConfig holds notification settings.
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Convert: ConvertConfig{
			CwebpPath:     "cwebp",
			MaxConcurrent: 3,
			Preset:        "default",
		},
		Watch: WatchConfig{
			DebounceMs: 500,
		},
		History: HistoryConfig{
			DatabasePath: filepath.Join(home, ".local", "share", "webp-conv", "history.db"),
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.Convert.CwebpPath = ExpandPath(cfg.Convert.CwebpPath)
	cfg.Convert.PresetFile = ExpandPath(cfg.Convert.PresetFile)
	cfg.History.DatabasePath = ExpandPath(cfg.History.DatabasePath)

	return cfg, nil
}

// Validate checks the configuration before a batch starts. Validation errors
// are fatal: no item is processed with an invalid configuration.
func (c *Config) Validate() error {
	if c.Convert.MaxConcurrent < 1 {
		return fmt.Errorf("convert.max_concurrent must be at least 1, got %d", c.Convert.MaxConcurrent)
	}
	if c.Convert.CwebpPath == "" {
		return fmt.Errorf("convert.cwebp_path must not be empty")
	}
	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMs)
	}
	if c.Watch.RescanCron != "" {
		if _, err := cron.ParseStandard(c.Watch.RescanCron); err != nil {
			return fmt.Errorf("invalid watch.rescan_cron: %w", err)
		}
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "webp-conv", "config.toml")
}
