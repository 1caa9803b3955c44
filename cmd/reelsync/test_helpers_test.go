package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

type envOption func(*config.Config)

func setupCLITestEnv(t *testing.T, opts ...envOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.TMDB.APIKey = ""
	for _, opt := range opts {
		opt(cfg)
	}
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	for _, key := range []string{"TMDB_API_KEY", "SCRAPER_USERNAME", "SCRAPER_PASSWORD", "SCRAPER_BASE_URL", "SCRAPER_MODE", "SCRAPER_FULL", "SCRAPER_SCHEDULE"} {
		t.Setenv(key, "")
	}

	configPath := filepath.Join(base, "reelsync.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func withTMDB(url string) envOption {
	return func(cfg *config.Config) {
		cfg.TMDB.APIKey = "test"
		cfg.TMDB.BaseURL = url
	}
}

func withSource(url string) envOption {
	return func(cfg *config.Config) {
		cfg.Source.BaseURL = url
	}
}

// seed writes entries through a short-lived store so the CLI opens the
// database fresh.
func (e *cliTestEnv) seed(t *testing.T, entries ...catalog.Entry) []int64 {
	t.Helper()
	store, err := catalog.Open(e.cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	defer store.Close()
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, testsupport.MustUpsert(t, store, entry))
	}
	return ids
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[source]
base_url = %q
request_timeout_seconds = 5

[sync]
mode = "incremental"
page_delay_seconds = 0
candidate_delay_min_ms = 0
candidate_delay_max_ms = 0
retry_attempts = 1
retry_delay_seconds = 0

[tmdb]
api_key = %q
base_url = %q
requests_per_second = 1000

[logging]
level = "error"
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Source.BaseURL,
		cfg.TMDB.APIKey,
		cfg.TMDB.BaseURL,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
