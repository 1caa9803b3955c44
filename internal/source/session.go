package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/metrics"
	"reelsync/internal/retry"
)

const sessionCookie = "user_id"

var errLoginRejected = errors.New("login rejected")

// Session holds the content site credential and renews it on demand.
type Session struct {
	mu         sync.Mutex
	credential string
	configured bool

	client    *http.Client
	loginURL  string
	username  string
	password  string
	userAgent string
	policy    retry.Policy
	logger    *slog.Logger
}

// NewSession builds a session for the configured source. Missing credentials
// are reported once here; Login then fails fast without touching the network.
func NewSession(cfg *config.Config, logger *slog.Logger, opts ...Option) *Session {
	o := buildOptions(cfg, opts)
	client := *o.httpClient
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	s := &Session{
		client:     &client,
		loginURL:   cfg.Source.BaseURL + cfg.Source.LoginPath,
		username:   strings.TrimSpace(cfg.Source.Username),
		password:   cfg.Source.Password,
		configured: cfg.LoginConfigured(),
		userAgent:  cfg.Source.UserAgent,
		policy:     *o.policy,
		logger:     logging.NewComponentLogger(logger, "session"),
	}
	if !s.Configured() {
		logging.WarnWithContext(s.logger, "source credentials not configured", "source_login_unconfigured",
			logging.String(logging.FieldErrorHint, "set source.username/source.password or SCRAPER_USERNAME/SCRAPER_PASSWORD"),
			logging.String(logging.FieldImpact, "detail pages that require a session will be skipped"),
		)
	}
	return s
}

// Configured reports whether both username and password are present.
func (s *Session) Configured() bool {
	return s.configured
}

// Credential returns the current cookie pair, or "" when not logged in.
func (s *Session) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Login performs the two-step handshake and replaces the stored credential.
// It reports success; failure details are logged and the credential cleared.
func (s *Session) Login(ctx context.Context) bool {
	if !s.Configured() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := logging.WithContext(ctx, s.logger)
	credential, err := s.handshake(ctx)
	metrics.RecordLogin(err == nil)
	if err != nil {
		s.credential = ""
		logging.WarnWithContext(logger, "source login failed", "source_login_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify source credentials and that the login form is unchanged"),
			logging.String(logging.FieldImpact, "session-only content is unavailable until the next login"),
		)
		return false
	}
	s.credential = credential
	logger.Info("source login succeeded", logging.String(logging.FieldEventType, "source_login"))
	return true
}

func (s *Session) handshake(ctx context.Context) (string, error) {
	var credential string
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		location, intermediate, err := s.submitForm(ctx)
		if err != nil {
			return err
		}
		credential, err = s.followRedirect(ctx, location, intermediate)
		return err
	})
	return credential, err
}

// submitForm posts the credentials and returns the redirect target with the
// cookies issued alongside it.
func (s *Session) submitForm(ctx context.Context) (string, string, error) {
	form := url.Values{}
	form.Set("username", s.username)
	form.Set("password", s.password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", retry.Permanent(fmt.Errorf("build login request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.decorate(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("post login form: %w", err)
	}
	defer drain(resp)

	if err := classifyRedirect(s.loginURL, resp); err != nil {
		return "", "", err
	}
	location, err := resp.Location()
	if err != nil {
		return "", "", retry.Permanent(fmt.Errorf("%w: login response missing location", errLoginRejected))
	}
	return location.String(), joinCookies(resp.Cookies()), nil
}

// followRedirect visits the post-login location, which issues the session cookie.
func (s *Session) followRedirect(ctx context.Context, location, cookies string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("build redirect request: %w", err))
	}
	if cookies != "" {
		req.Header.Set("Cookie", cookies)
	}
	s.decorate(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("follow login redirect: %w", err)
	}
	defer drain(resp)

	if err := classifyRedirect(location, resp); err != nil {
		return "", err
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookie && cookie.Value != "" {
			return cookie.Name + "=" + cookie.Value, nil
		}
	}
	return "", retry.Permanent(fmt.Errorf("%w: %s cookie not issued", errLoginRejected, sessionCookie))
}

func (s *Session) decorate(req *http.Request) {
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
}

// classifyRedirect accepts only a 302; other statuses fail the login, with
// server errors left retryable.
func classifyRedirect(target string, resp *http.Response) error {
	if resp.StatusCode == http.StatusFound {
		return nil
	}
	statusErr := &StatusError{URL: target, StatusCode: resp.StatusCode}
	if statusErr.Transient() {
		return statusErr
	}
	return retry.Permanent(fmt.Errorf("%w: %w", errLoginRejected, statusErr))
}

func joinCookies(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, cookie := range cookies {
		parts = append(parts, cookie.Name+"="+cookie.Value)
	}
	return strings.Join(parts, "; ")
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
