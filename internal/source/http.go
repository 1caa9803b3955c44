package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"reelsync/internal/config"
	"reelsync/internal/retry"
)

const maxDocumentBytes = 8 << 20

// Option configures the source components.
type Option func(*options)

type options struct {
	httpClient *http.Client
	policy     *retry.Policy
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the retry policy derived from configuration.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(o *options) {
		o.policy = &policy
	}
}

func buildOptions(cfg *config.Config, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		timeout := 15 * time.Second
		if cfg != nil && cfg.RequestTimeout() > 0 {
			timeout = cfg.RequestTimeout()
		}
		o.httpClient = &http.Client{Timeout: timeout}
	}
	if o.policy == nil {
		policy := PolicyFromConfig(cfg)
		o.policy = &policy
	}
	return o
}

// PolicyFromConfig derives the shared retry policy from sync settings.
func PolicyFromConfig(cfg *config.Config) retry.Policy {
	if cfg == nil {
		return retry.DefaultPolicy
	}
	return retry.Policy{Attempts: cfg.Sync.RetryAttempts, Delay: cfg.RetryDelay()}
}

type fetcher struct {
	client    *http.Client
	userAgent string
	policy    retry.Policy
}

// document GETs target and parses the body as HTML. Non-2xx statuses become
// *StatusError; only transient ones are retried.
func (f *fetcher) document(ctx context.Context, target string, header http.Header) (*goquery.Document, error) {
	var doc *goquery.Document
	err := retry.Do(ctx, f.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("build request: %w", err))
		}
		for key, values := range header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			statusErr := &StatusError{URL: target, StatusCode: resp.StatusCode}
			if statusErr.Transient() {
				return statusErr
			}
			return retry.Permanent(statusErr)
		}
		parsed, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxDocumentBytes))
		if err != nil {
			return fmt.Errorf("parse %s: %w", target, err)
		}
		doc = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// resolveURL makes ref absolute against base. Blank refs stay blank.
func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}
