package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSource()
	c.normalizeSync()
	c.normalizeTMDB()
	c.normalizeLogging()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSource() {
	if value, ok := lookupEnv("SCRAPER_BASE_URL"); ok && strings.TrimSpace(c.Source.BaseURL) == defaultSourceBaseURL {
		c.Source.BaseURL = value
	}
	c.Source.BaseURL = strings.TrimRight(strings.TrimSpace(c.Source.BaseURL), "/")
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = defaultSourceBaseURL
	}
	c.Source.Name = strings.TrimSpace(c.Source.Name)
	if c.Source.Name == "" {
		c.Source.Name = defaultSourceName
	}
	c.Source.ListingPath = ensureLeadingSlash(c.Source.ListingPath, defaultListingPath)
	c.Source.LoginPath = ensureLeadingSlash(c.Source.LoginPath, defaultLoginPath)
	if c.Source.Username == "" {
		if value, ok := lookupEnv("SCRAPER_USERNAME"); ok {
			c.Source.Username = value
		}
	}
	if c.Source.Password == "" {
		if value, ok := os.LookupEnv("SCRAPER_PASSWORD"); ok {
			c.Source.Password = value
		}
	}
	c.Source.Username = strings.TrimSpace(c.Source.Username)
	c.Source.UserAgent = strings.TrimSpace(c.Source.UserAgent)
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = defaultUserAgent
	}
	if c.Source.RequestTimeoutSeconds <= 0 {
		c.Source.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeSync() {
	if value, ok := lookupEnv("SCRAPER_MODE"); ok {
		c.Sync.Mode = value
	} else if value, ok := lookupEnv("SCRAPER_FULL"); ok && strings.EqualFold(value, "true") {
		c.Sync.Mode = ModeFull
	}
	c.Sync.Mode = strings.ToLower(strings.TrimSpace(c.Sync.Mode))
	if c.Sync.Mode == "" {
		c.Sync.Mode = defaultSyncMode
	}
	if value, ok := lookupEnv("SCRAPER_SCHEDULE"); ok {
		c.Sync.Schedule = value
	}
	c.Sync.Schedule = strings.TrimSpace(c.Sync.Schedule)
	if c.Sync.Schedule == "" {
		c.Sync.Schedule = defaultSchedule
	}
	if c.Sync.MaxConsecutivePageFailures <= 0 {
		c.Sync.MaxConsecutivePageFailures = defaultMaxConsecutivePageFailures
	}
	if c.Sync.RetryAttempts <= 0 {
		c.Sync.RetryAttempts = defaultRetryAttempts
	}
	if c.Sync.MaxPages < 0 {
		c.Sync.MaxPages = 0
	}
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := lookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.ImageBaseURL), "/")
	if c.TMDB.ImageBaseURL == "" {
		c.TMDB.ImageBaseURL = defaultTMDBImageBaseURL
	}
	c.TMDB.Region = strings.ToUpper(strings.TrimSpace(c.TMDB.Region))
	c.TMDB.OriginalLanguage = strings.ToLower(strings.TrimSpace(c.TMDB.OriginalLanguage))
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.MaxValidations <= 0 {
		c.TMDB.MaxValidations = defaultTMDBMaxValidations
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		c.TMDB.RequestsPerSecond = defaultTMDBRequestsPerSecond
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func ensureLeadingSlash(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return value
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
