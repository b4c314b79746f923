package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sdmeta/internal/config"
	"sdmeta/internal/genmeta"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SDMETA_LOG_LEVEL", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "sdmeta", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, ".local", "share", "sdmeta") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Convert.Format != "jpg" || cfg.Convert.Layout != "mirror" || cfg.Convert.JPEGQuality != 95 {
		t.Fatalf("unexpected convert defaults: %+v", cfg.Convert)
	}
	if len(cfg.Convert.ExcludeDirs) != 1 || cfg.Convert.ExcludeDirs[0] != ".bf" {
		t.Fatalf("unexpected exclude dirs: %v", cfg.Convert.ExcludeDirs)
	}
	if len(cfg.Extract.StopList) != len(genmeta.DefaultStopList()) {
		t.Fatalf("expected default stop list, got %d entries", len(cfg.Extract.StopList))
	}
	if !cfg.Report.Enabled {
		t.Fatal("expected report enabled by default")
	}
	if cfg.ReportDBPath() != filepath.Join(cfg.Paths.StateDir, "reports.db") {
		t.Fatalf("unexpected report path %q", cfg.ReportDBPath())
	}
}

func TestLoadFileOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "sdmeta.toml")
	content := `
[paths]
state_dir = "` + filepath.ToSlash(filepath.Join(dir, "state")) + `"
log_dir = ""

[logging]
format = "JSON"
level = "debug"

[convert]
format = "webp"
layout = "subfolder"
workers = 3
exclude_dirs = [".bf", " thumbs ", ".bf"]
legacy_exif = true

[extract]
stop_list = ['sexy and cute,']
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution %q %v", resolved, exists)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
	if cfg.Convert.Format != "webp" || cfg.Convert.Layout != "subfolder" || cfg.Convert.Workers != 3 || !cfg.Convert.LegacyEXIF {
		t.Fatalf("unexpected convert: %+v", cfg.Convert)
	}
	if got := strings.Join(cfg.Convert.ExcludeDirs, ","); got != ".bf,thumbs" {
		t.Fatalf("exclude dirs not normalized: %q", got)
	}
	if len(cfg.Extract.StopList) != 1 {
		t.Fatalf("unexpected stop list %v", cfg.Extract.StopList)
	}
	if cfg.LogPath() != "" {
		t.Fatalf("expected no log file, got %q", cfg.LogPath())
	}
}

func TestLogLevelEnvFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SDMETA_LOG_LEVEL", "WARN")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected env level, got %q", cfg.Logging.Level)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"format", func(c *config.Config) { c.Convert.Format = "gif" }, "convert.format"},
		{"layout", func(c *config.Config) { c.Convert.Layout = "flat" }, "convert.layout"},
		{"workers", func(c *config.Config) { c.Convert.Workers = -1 }, "convert.workers"},
		{"quality", func(c *config.Config) { c.Convert.JPEGQuality = 101 }, "convert.jpeg_quality"},
		{"exclude path", func(c *config.Config) { c.Convert.ExcludeDirs = []string{"a/b"} }, "convert.exclude_dirs"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"stop list", func(c *config.Config) { c.Extract.StopList = []string{"ok", " "} }, "extract.stop_list[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Logging.Level = "info"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestUnknownKeyRejected(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "c.toml")
	if err := os.WriteFile(path, []byte("[convert]\nformatt = \"jpg\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SDMETA_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists || cfg.Convert.Format != "jpg" {
		t.Fatalf("unexpected sample load: exists=%v cfg=%+v", exists, cfg.Convert)
	}
}
