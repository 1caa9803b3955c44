package identification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"reelsync/internal/config"
	"reelsync/internal/identification/tmdb"
	"reelsync/internal/logging"
	"reelsync/internal/retry"
)

// ErrInvalidIMDBID reports an id that is not of the form tt<digits>.
var ErrInvalidIMDBID = errors.New("invalid imdb id")

// Record is the canonical metadata resolved for a title.
type Record struct {
	TMDBID        int64
	IMDBID        string
	Title         string
	OriginalTitle string
	Year          int
	Genres        []string
	Rating        float64
	Poster        string
	Overview      string
	Runtime       int
	Language      string
	Popularity    float64
}

// Resolver matches titles against TMDB.
type Resolver struct {
	client         tmdb.Searcher
	region         string
	language       string
	imageBaseURL   string
	maxValidations int
	logger         *slog.Logger
}

// NewResolver wraps an existing TMDB client. A nil client disables matching.
func NewResolver(cfg *config.Config, client tmdb.Searcher, logger *slog.Logger) *Resolver {
	maxValidations := cfg.TMDB.MaxValidations
	if maxValidations <= 0 {
		maxValidations = 5
	}
	return &Resolver{
		client:         client,
		region:         cfg.TMDB.Region,
		language:       cfg.TMDB.OriginalLanguage,
		imageBaseURL:   cfg.TMDB.ImageBaseURL,
		maxValidations: maxValidations,
		logger:         logging.NewComponentLogger(logger, "identification"),
	}
}

// NewResolverFromConfig builds the TMDB client from configuration. Without an
// API key the resolver is returned disabled and a warning is logged.
func NewResolverFromConfig(cfg *config.Config, logger *slog.Logger, opts ...tmdb.Option) (*Resolver, error) {
	if strings.TrimSpace(cfg.TMDB.APIKey) == "" {
		resolver := NewResolver(cfg, nil, logger)
		logging.WarnWithContext(resolver.logger, "tmdb api key not configured", "tmdb_unconfigured",
			logging.String(logging.FieldErrorHint, "set tmdb.api_key or TMDB_API_KEY"),
			logging.String(logging.FieldImpact, "titles are stored without IMDb links"),
		)
		return resolver, nil
	}
	base := []tmdb.Option{
		tmdb.WithRateLimit(cfg.TMDB.RequestsPerSecond),
		tmdb.WithRetryPolicy(retry.Policy{Attempts: cfg.Sync.RetryAttempts, Delay: cfg.RetryDelay()}),
		tmdb.WithLogger(logger),
	}
	client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create tmdb client: %w", err)
	}
	return NewResolver(cfg, client, logger), nil
}

// Enabled reports whether a TMDB client is configured.
func (r *Resolver) Enabled() bool {
	return r != nil && r.client != nil
}

type searchQuery struct {
	label string
	opts  tmdb.SearchOptions
}

func (r *Resolver) queries(year int) []searchQuery {
	var queries []searchQuery
	if year > 0 {
		queries = append(queries, searchQuery{"title_year_region", tmdb.SearchOptions{Year: year, Region: r.region}})
	}
	queries = append(queries, searchQuery{"title_region", tmdb.SearchOptions{Region: r.region}})
	if year > 0 {
		queries = append(queries, searchQuery{"title_year", tmdb.SearchOptions{Year: year}})
	}
	queries = append(queries, searchQuery{"title", tmdb.SearchOptions{}})
	return queries
}

// Match returns the best validated record for title and year (0 = unknown).
// A nil record with a nil error means no confident match. An error is
// returned only when every search failed or the context ended.
func (r *Resolver) Match(ctx context.Context, title string, year int) (*Record, error) {
	if !r.Enabled() {
		return nil, nil
	}
	query := NormalizeTitle(title)
	if query == "" {
		return nil, nil
	}
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldTitle, title),
		logging.Int(logging.FieldYear, year),
	)

	var (
		sets     [][]tmdb.Result
		failures int
		lastErr  error
	)
	queries := r.queries(year)
	for _, q := range queries {
		resp, err := r.client.SearchMovie(ctx, query, q.opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			lastErr = err
			logging.WarnWithContext(logger, "tmdb search failed", "tmdb_search_failed",
				logging.String("query_kind", q.label),
				logging.Error(err),
				logging.String(logging.FieldImpact, "remaining search permutations still run"),
			)
			continue
		}
		sets = append(sets, resp.Results)
	}
	if failures == len(queries) {
		return nil, fmt.Errorf("tmdb search %q: %w", query, lastErr)
	}

	candidates := mergeResults(sets...)
	if len(candidates) == 0 {
		logger.Info("no tmdb candidates", logging.String(logging.FieldEventType, "identify_no_candidates"))
		return nil, nil
	}

	ranked := rankResults(logger, newMatchQuery(query, year, r.language), candidates)
	attempts := 0
	for _, candidate := range ranked {
		if attempts >= r.maxValidations {
			break
		}
		attempts++
		details, err := r.client.GetMovieDetails(ctx, candidate.result.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Debug("candidate validation failed",
				logging.Int64("tmdb_id", candidate.result.ID),
				logging.Error(err),
			)
			continue
		}
		if details.CanonicalIMDBID() == "" {
			logger.Debug("candidate lacks imdb id", logging.Int64("tmdb_id", candidate.result.ID))
			continue
		}
		record := r.recordFrom(*details)
		logger.Info("tmdb match accepted",
			logging.String(logging.FieldEventType, "identify_matched"),
			logging.Int64("tmdb_id", record.TMDBID),
			logging.String("imdb_id", record.IMDBID),
			logging.String("tier", candidate.tier),
			logging.Int("score", candidate.score),
			logging.Int("validations", attempts),
		)
		return record, nil
	}

	logger.Info("no validated tmdb match",
		logging.String(logging.FieldEventType, "identify_no_match"),
		logging.Int("candidates", len(candidates)),
		logging.Int("exact_candidates", len(ranked)),
		logging.Int("validations", attempts),
	)
	return nil, nil
}

// MatchByIMDBID resolves a known IMDb id to its full record.
func (r *Resolver) MatchByIMDBID(ctx context.Context, imdbID string) (*Record, error) {
	imdbID = strings.TrimSpace(imdbID)
	if !tmdb.ValidIMDBID(imdbID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIMDBID, imdbID)
	}
	if !r.Enabled() {
		return nil, nil
	}
	found, err := r.client.FindByIMDBID(ctx, imdbID)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", imdbID, err)
	}
	if found == nil || len(found.MovieResults) == 0 {
		return nil, nil
	}
	details, err := r.client.GetMovieDetails(ctx, found.MovieResults[0].ID)
	if err != nil {
		if errors.Is(err, tmdb.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("movie details %d: %w", found.MovieResults[0].ID, err)
	}
	record := r.recordFrom(*details)
	if record.IMDBID == "" {
		record.IMDBID = imdbID
	}
	return record, nil
}

func (r *Resolver) recordFrom(movie tmdb.Result) *Record {
	record := &Record{
		TMDBID:        movie.ID,
		IMDBID:        movie.CanonicalIMDBID(),
		Title:         movie.Title,
		OriginalTitle: movie.OriginalTitle,
		Year:          movie.Year(),
		Genres:        movie.GenreNames(),
		Rating:        movie.VoteAverage,
		Overview:      strings.TrimSpace(movie.Overview),
		Runtime:       movie.Runtime,
		Language:      movie.OriginalLanguage,
		Popularity:    movie.Popularity,
	}
	if path := strings.TrimSpace(movie.PosterPath); path != "" {
		record.Poster = r.imageBaseURL + "/" + strings.TrimLeft(path, "/")
	}
	return record
}
