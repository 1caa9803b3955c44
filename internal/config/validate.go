package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSource() error {
	if err := validateHTTPURL("source.base_url", c.Source.BaseURL); err != nil {
		return err
	}
	if (c.Source.Username == "") != (c.Source.Password == "") {
		return errors.New("source.username and source.password must be set together")
	}
	return nil
}

func (c *Config) validateSync() error {
	switch c.Sync.Mode {
	case ModeIncremental, ModeFull:
	default:
		return fmt.Errorf("sync.mode must be %q or %q, got %q", ModeIncremental, ModeFull, c.Sync.Mode)
	}
	if _, err := ParseSchedule(c.Sync.Schedule); err != nil {
		return fmt.Errorf("sync.schedule: %w", err)
	}
	if c.Sync.PageDelaySeconds < 0 {
		return errors.New("sync.page_delay_seconds must be >= 0")
	}
	if c.Sync.RetryDelaySeconds < 0 {
		return errors.New("sync.retry_delay_seconds must be >= 0")
	}
	if c.Sync.CandidateDelayMinMS < 0 || c.Sync.CandidateDelayMaxMS < 0 {
		return errors.New("sync.candidate_delay_min_ms and sync.candidate_delay_max_ms must be >= 0")
	}
	if c.Sync.CandidateDelayMaxMS < c.Sync.CandidateDelayMinMS {
		return errors.New("sync.candidate_delay_max_ms must be >= sync.candidate_delay_min_ms")
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		// identity reconciliation is optional; titles persist unlinked without a key
		return nil
	}
	if err := validateHTTPURL("tmdb.base_url", c.TMDB.BaseURL); err != nil {
		return err
	}
	if c.TMDB.Region != "" && len(c.TMDB.Region) != 2 {
		return fmt.Errorf("tmdb.region must be an ISO 3166-1 code, got %q", c.TMDB.Region)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Bind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Bind); err != nil {
		return fmt.Errorf("metrics.bind: %w", err)
	}
	return nil
}

// ParseSchedule parses a standard five-field cron expression or an @every/@daily descriptor.
func ParseSchedule(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("schedule is empty")
	}
	return cron.ParseStandard(expr)
}

func validateHTTPURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", field, raw)
	}
	return nil
}
