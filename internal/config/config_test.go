package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelsync/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TMDB_API_KEY", "SCRAPER_USERNAME", "SCRAPER_PASSWORD", "SCRAPER_MODE", "SCRAPER_FULL", "SCRAPER_SCHEDULE", "SCRAPER_BASE_URL"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("TMDB_API_KEY", "test-key")
	t.Setenv("SCRAPER_USERNAME", "alice")
	t.Setenv("SCRAPER_PASSWORD", "secret")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	wantData := filepath.Join(tempHome, ".local", "share", "reelsync")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "catalog.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if !cfg.LoginConfigured() {
		t.Fatal("expected login credentials from env")
	}
	if cfg.Sync.Mode != config.ModeIncremental {
		t.Fatalf("expected incremental default mode, got %q", cfg.Sync.Mode)
	}
	if cfg.Sync.Schedule != "0 */6 * * *" {
		t.Fatalf("unexpected default schedule %q", cfg.Sync.Schedule)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "reelsync.toml")

	type payload struct {
		Source struct {
			BaseURL string `toml:"base_url"`
		} `toml:"source"`
		Sync struct {
			Mode     string `toml:"mode"`
			Schedule string `toml:"schedule"`
			MaxPages int    `toml:"max_pages"`
		} `toml:"sync"`
		TMDB struct {
			APIKey string `toml:"api_key"`
			Region string `toml:"region"`
		} `toml:"tmdb"`
	}
	custom := payload{}
	custom.Source.BaseURL = "https://example.com/"
	custom.Sync.Mode = "FULL"
	custom.Sync.Schedule = "@every 30m"
	custom.Sync.MaxPages = 12
	custom.TMDB.APIKey = "abc123"
	custom.TMDB.Region = "in"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Source.BaseURL != "https://example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Source.BaseURL)
	}
	if cfg.Sync.Mode != config.ModeFull {
		t.Fatalf("expected full mode, got %q", cfg.Sync.Mode)
	}
	if cfg.Sync.MaxPages != 12 {
		t.Fatalf("expected max pages 12, got %d", cfg.Sync.MaxPages)
	}
	if cfg.TMDB.Region != "IN" {
		t.Fatalf("expected region upper-cased, got %q", cfg.TMDB.Region)
	}
	if cfg.Source.ListingPath != "/videos/latest" {
		t.Fatalf("expected default listing path, got %q", cfg.Source.ListingPath)
	}
}

func TestLegacyFullEnvSelectsFullMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SCRAPER_FULL", "true")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Sync.Mode != config.ModeFull {
		t.Fatalf("expected full mode from SCRAPER_FULL, got %q", cfg.Sync.Mode)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"mode", func(c *config.Config) { c.Sync.Mode = "sometimes" }, "sync.mode"},
		{"schedule", func(c *config.Config) { c.Sync.Schedule = "not a cron" }, "sync.schedule"},
		{"base url", func(c *config.Config) { c.Source.BaseURL = "ftp://example.com" }, "source.base_url"},
		{"half credentials", func(c *config.Config) { c.Source.Username = "bob" }, "source.username"},
		{"delay range", func(c *config.Config) { c.Sync.CandidateDelayMinMS = 3000 }, "candidate_delay_max_ms"},
		{"metrics bind", func(c *config.Config) { c.Metrics.Bind = "nonsense" }, "metrics.bind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDefaultConfigValidatesWithoutTMDBKey(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Source.Name != "Tamilan24" {
		t.Fatalf("unexpected source name %q", cfg.Source.Name)
	}
}
