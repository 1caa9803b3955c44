package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Crawl modes understood by the sync orchestrator.
const (
	ModeIncremental = "incremental"
	ModeFull        = "full"
)

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Source describes the content site being crawled.
type Source struct {
	Name                  string `toml:"name"`
	BaseURL               string `toml:"base_url"`
	ListingPath           string `toml:"listing_path"`
	LoginPath             string `toml:"login_path"`
	Username              string `toml:"username"`
	Password              string `toml:"password"`
	UserAgent             string `toml:"user_agent"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Sync controls crawl mode, scheduling, pacing, and retries.
type Sync struct {
	Mode                       string `toml:"mode"`
	Schedule                   string `toml:"schedule"`
	RunOnStart                 bool   `toml:"run_on_start"`
	FullOnStart                bool   `toml:"full_on_start"`
	PageDelaySeconds           int    `toml:"page_delay_seconds"`
	CandidateDelayMinMS        int    `toml:"candidate_delay_min_ms"`
	CandidateDelayMaxMS        int    `toml:"candidate_delay_max_ms"`
	MaxPages                   int    `toml:"max_pages"`
	MaxConsecutivePageFailures int    `toml:"max_consecutive_page_failures"`
	RetryAttempts              int    `toml:"retry_attempts"`
	RetryDelaySeconds          int    `toml:"retry_delay_seconds"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	ImageBaseURL      string  `toml:"image_base_url"`
	Language          string  `toml:"language"`
	Region            string  `toml:"region"`
	OriginalLanguage  string  `toml:"original_language"`
	MaxValidations    int     `toml:"max_validations"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Metrics configures the optional Prometheus listener.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for reelsync.
//
// Configuration sections by subsystem:
//   - Paths: catalog database and log locations
//   - Source: content site endpoints and login credentials
//   - Sync: crawl mode, schedule, request pacing, retry policy
//   - TMDB: identity reconciliation provider
//   - Metrics: Prometheus listener
//   - Logging: log format, level, and daemon log retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Source  Source  `toml:"source"`
	Sync    Sync    `toml:"sync"`
	TMDB    TMDB    `toml:"tmdb"`
	Metrics Metrics `toml:"metrics"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the catalog database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// LockPath returns the location of the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "reelsync.lock")
}

// RequestTimeout returns the per-request timeout for the content source.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Source.RequestTimeoutSeconds) * time.Second
}

// PageDelay returns the fixed pause between listing page fetches.
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.Sync.PageDelaySeconds) * time.Second
}

// CandidateDelayRange returns the bounds of the randomized pause between detail fetches.
func (c *Config) CandidateDelayRange() (time.Duration, time.Duration) {
	return time.Duration(c.Sync.CandidateDelayMinMS) * time.Millisecond,
		time.Duration(c.Sync.CandidateDelayMaxMS) * time.Millisecond
}

// RetryDelay returns the fixed pause between retry attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Sync.RetryDelaySeconds) * time.Second
}

// LoginConfigured reports whether both source credentials are present.
func (c *Config) LoginConfigured() bool {
	return strings.TrimSpace(c.Source.Username) != "" && strings.TrimSpace(c.Source.Password) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
