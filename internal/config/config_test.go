package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Convert.MaxConcurrent != 3 {
		t.Errorf("got max_concurrent=%d, want 3", cfg.Convert.MaxConcurrent)
	}
	if cfg.Convert.CwebpPath != "cwebp" {
		t.Errorf("got cwebp_path=%q, want %q", cfg.Convert.CwebpPath, "cwebp")
	}
	if cfg.Watch.DebounceMs != 500 {
		t.Errorf("got debounce_ms=%d, want 500", cfg.Watch.DebounceMs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Convert.MaxConcurrent != 3 {
		t.Errorf("got max_concurrent=%d, want default 3", cfg.Convert.MaxConcurrent)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[convert]
cwebp_path = "/opt/webp/bin/cwebp"
max_concurrent = 8
preset = "photo"
skip_existing = true

[watch]
debounce_ms = 250
rescan_cron = "*/15 * * * *"

[notifications]
desktop = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Convert.CwebpPath != "/opt/webp/bin/cwebp" {
		t.Errorf("got cwebp_path=%q", cfg.Convert.CwebpPath)
	}
	if cfg.Convert.MaxConcurrent != 8 {
		t.Errorf("got max_concurrent=%d, want 8", cfg.Convert.MaxConcurrent)
	}
	if cfg.Convert.Preset != "photo" {
		t.Errorf("got preset=%q, want photo", cfg.Convert.Preset)
	}
	if !cfg.Convert.SkipExisting {
		t.Error("skip_existing not loaded")
	}
	if cfg.Watch.RescanCron != "*/15 * * * *" {
		t.Errorf("got rescan_cron=%q", cfg.Watch.RescanCron)
	}
	if !cfg.Notifications.Desktop {
		t.Error("notifications.desktop not loaded")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config failed validation: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"zero concurrency", func(c *Config) { c.Convert.MaxConcurrent = 0 }, true},
		{"negative concurrency", func(c *Config) { c.Convert.MaxConcurrent = -2 }, true},
		{"empty cwebp path", func(c *Config) { c.Convert.CwebpPath = "" }, true},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -1 }, true},
		{"bad cron", func(c *Config) { c.Watch.RescanCron = "not a cron" }, true},
		{"good cron", func(c *Config) { c.Watch.RescanCron = "0 * * * *" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := ExpandPath("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Errorf("got %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("got %q, want unchanged", got)
	}
}
