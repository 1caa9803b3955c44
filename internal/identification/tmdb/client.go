package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"reelsync/internal/logging"
	"reelsync/internal/metrics"
	"reelsync/internal/retry"
)

// ErrNotFound reports a 404 from TMDB.
var ErrNotFound = errors.New("tmdb resource not found")

var imdbIDPattern = regexp.MustCompile(`^tt\d+$`)

// ValidIMDBID reports whether id has the tt<digits> shape.
func ValidIMDBID(id string) bool {
	return imdbIDPattern.MatchString(strings.TrimSpace(id))
}

// Genre is a TMDB genre entry.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ExternalIDs holds identifiers appended to movie details.
type ExternalIDs struct {
	IMDBID string `json:"imdb_id"`
}

// Result represents a TMDB movie, either a search match or a full details
// payload. Details-only fields are zero on search results.
type Result struct {
	ID               int64        `json:"id"`
	Title            string       `json:"title"`
	OriginalTitle    string       `json:"original_title"`
	OriginalLanguage string       `json:"original_language"`
	Overview         string       `json:"overview"`
	ReleaseDate      string       `json:"release_date"`
	PosterPath       string       `json:"poster_path"`
	Popularity       float64      `json:"popularity"`
	VoteAverage      float64      `json:"vote_average"`
	VoteCount        int64        `json:"vote_count"`
	Runtime          int          `json:"runtime"`
	Genres           []Genre      `json:"genres"`
	IMDBID           string       `json:"imdb_id"`
	ExternalIDs      *ExternalIDs `json:"external_ids"`
}

// Year returns the release year, or 0 when unknown.
func (r Result) Year() int {
	if len(r.ReleaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(r.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// CanonicalIMDBID prefers the appended external ids over the top-level field.
func (r Result) CanonicalIMDBID() string {
	if r.ExternalIDs != nil && strings.TrimSpace(r.ExternalIDs.IMDBID) != "" {
		return strings.TrimSpace(r.ExternalIDs.IMDBID)
	}
	return strings.TrimSpace(r.IMDBID)
}

// GenreNames returns genre names in TMDB order.
func (r Result) GenreNames() []string {
	names := make([]string, 0, len(r.Genres))
	for _, genre := range r.Genres {
		if name := strings.TrimSpace(genre.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// FindResponse models /find results; only movies are used.
type FindResponse struct {
	MovieResults []Result `json:"movie_results"`
}

// SearchOptions contains optional parameters for TMDB movie search.
type SearchOptions struct {
	Year   int    `json:"year,omitempty"`
	Region string `json:"region,omitempty"`
}

// Searcher defines the TMDB operations used by identification.
type Searcher interface {
	SearchMovie(ctx context.Context, query string, opts SearchOptions) (*Response, error)
	GetMovieDetails(ctx context.Context, movieID int64) (*Result, error)
	FindByIMDBID(ctx context.Context, imdbID string) (*FindResponse, error)
}

// StatusError captures a non-200 TMDB response.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb %s returned %d", e.Endpoint, e.StatusCode)
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     retry.Policy
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRateLimit caps outbound requests per second. Non-positive values disable pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithLogger attaches a logger for breaker state changes.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "tmdb")
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		policy:     retry.DefaultPolicy,
		logger:     logging.NewComponentLogger(nil, "tmdb"),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// a missing movie is an answer, not an outage
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.TMDBBreakerState.Set(breakerStateValue(to))
			logging.WarnWithContext(client.logger, "tmdb circuit breaker state changed", "tmdb_breaker_state",
				logging.String("from", from.String()),
				logging.String("to", to.String()),
				logging.String(logging.FieldErrorHint, "check TMDB availability and api key"),
				logging.String(logging.FieldImpact, "titles persist unlinked while the breaker is open"),
			)
		},
	})
	return client, nil
}

// SearchMovie performs a TMDB movie search with optional filters.
func (c *Client) SearchMovie(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if opts.Year > 0 {
		params.Set("year", strconv.Itoa(opts.Year))
	}
	if region := strings.TrimSpace(opts.Region); region != "" {
		params.Set("region", strings.ToUpper(region))
	}

	var payload Response
	if err := c.get(ctx, "search", "/search/movie", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetMovieDetails fetches movie details with external ids appended.
func (c *Client) GetMovieDetails(ctx context.Context, movieID int64) (*Result, error) {
	if movieID <= 0 {
		return nil, errors.New("movie id must be positive")
	}
	params := url.Values{}
	params.Set("append_to_response", "external_ids")

	var payload Result
	if err := c.get(ctx, "movie", fmt.Sprintf("/movie/%d", movieID), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FindByIMDBID resolves an IMDb id to TMDB movie results.
func (c *Client) FindByIMDBID(ctx context.Context, imdbID string) (*FindResponse, error) {
	imdbID = strings.TrimSpace(imdbID)
	if !ValidIMDBID(imdbID) {
		return nil, fmt.Errorf("invalid imdb id %q", imdbID)
	}
	params := url.Values{}
	params.Set("external_source", "imdb_id")

	var payload FindResponse
	if err := c.get(ctx, "find", "/find/"+url.PathEscape(imdbID), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, endpointName, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()
	target := endpoint.String()

	var body []byte
	err = retry.Do(ctx, c.policy, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		payload, err := c.breaker.Execute(func() ([]byte, error) {
			return c.fetch(ctx, endpointName, target)
		})
		switch {
		case err == nil:
			body = payload
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return retry.Permanent(fmt.Errorf("tmdb %s: %w", endpointName, err))
		default:
			return err
		}
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode tmdb %s response: %w", endpointName, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, endpointName, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		metrics.RecordTMDBRequest(endpointName, 0, latency)
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()
	metrics.RecordTMDBRequest(endpointName, resp.StatusCode, latency)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, retry.Permanent(fmt.Errorf("%w: %s", ErrNotFound, endpointName))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &StatusError{Endpoint: endpointName, StatusCode: resp.StatusCode}
	default:
		return nil, retry.Permanent(&StatusError{Endpoint: endpointName, StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read tmdb %s response: %w", endpointName, err)
	}
	return body, nil
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
