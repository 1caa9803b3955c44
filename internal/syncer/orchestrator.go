package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/identification"
	"reelsync/internal/logging"
	"reelsync/internal/metrics"
	"reelsync/internal/retry"
	"reelsync/internal/source"
)

var (
	// ErrRunInProgress is returned when a run is requested while one is active.
	ErrRunInProgress = errors.New("sync run already in progress")
	// ErrAuthentication is returned when the initial source login fails.
	ErrAuthentication = errors.New("source authentication failed")
)

// Session is the subset of source.Session used by a run.
type Session interface {
	Configured() bool
	Login(ctx context.Context) bool
}

// Lister yields listing candidates page by page.
type Lister interface {
	List(ctx context.Context, page int) ([]source.Listing, error)
}

// DetailResolver resolves a candidate's detail page.
type DetailResolver interface {
	Resolve(ctx context.Context, detailURL string) (*source.Details, error)
}

// IdentityResolver reconciles a title with its canonical record.
type IdentityResolver interface {
	Match(ctx context.Context, title string, year int) (*identification.Record, error)
}

// Store is the catalog surface used by a run.
type Store interface {
	FindTitle(ctx context.Context, title string, year int) (*catalog.Title, error)
	UpsertTitleAndStream(ctx context.Context, entry catalog.Entry) (int64, error)
}

// Dependencies bundles the collaborators of an Orchestrator.
type Dependencies struct {
	Session  Session
	Lister   Lister
	Details  DetailResolver
	Identity IdentityResolver
	Store    Store
}

// Summary reports what a run did.
type Summary struct {
	RunID      string
	Mode       string
	Pages      int
	Candidates int
	Skipped    int
	NoMedia    int
	Stored     int
	Linked     int
	Failed     int
	Duration   time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSleep replaces the pacing sleep, mainly for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// Orchestrator runs sync passes.
type Orchestrator struct {
	deps                Dependencies
	defaultMode         string
	sourceName          string
	pageDelay           time.Duration
	candidateDelayMin   time.Duration
	candidateDelayMax   time.Duration
	maxPages            int
	maxConsecutiveFails int
	sleep               func(context.Context, time.Duration) error
	running             atomic.Bool
	logger              *slog.Logger
}

// New creates an orchestrator over deps.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger, opts ...Option) *Orchestrator {
	minDelay, maxDelay := cfg.CandidateDelayRange()
	o := &Orchestrator{
		deps:                deps,
		defaultMode:         cfg.Sync.Mode,
		sourceName:          cfg.Source.Name,
		pageDelay:           cfg.PageDelay(),
		candidateDelayMin:   minDelay,
		candidateDelayMax:   maxDelay,
		maxPages:            cfg.Sync.MaxPages,
		maxConsecutiveFails: cfg.Sync.MaxConsecutivePageFailures,
		sleep:               retry.Sleep,
		logger:              logging.NewComponentLogger(logger, "syncer"),
	}
	if o.maxConsecutiveFails <= 0 {
		o.maxConsecutiveFails = 3
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Build wires the production source, identity, and store components.
func Build(cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*Orchestrator, error) {
	session := source.NewSession(cfg, logger)
	lister, err := source.NewLister(cfg, session, logger)
	if err != nil {
		return nil, err
	}
	resolver, err := identification.NewResolverFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(cfg, Dependencies{
		Session:  session,
		Lister:   lister,
		Details:  source.NewDetailResolver(cfg, session, logger),
		Identity: resolver,
		Store:    store,
	}, logger), nil
}

// Running reports whether a run is active.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Run performs one sync pass. An empty mode uses the configured default.
func (o *Orchestrator) Run(ctx context.Context, mode string) (Summary, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = o.defaultMode
	}
	if mode != config.ModeIncremental && mode != config.ModeFull {
		return Summary{}, fmt.Errorf("unknown sync mode %q", mode)
	}

	if !o.running.CompareAndSwap(false, true) {
		metrics.RecordSkippedRun(mode)
		logging.WarnWithContext(o.logger, "sync run skipped", "sync_overlap",
			logging.String(logging.FieldMode, mode),
			logging.String(logging.FieldErrorHint, "lengthen the schedule interval if this repeats"),
			logging.String(logging.FieldImpact, "this trigger is dropped"),
		)
		return Summary{}, ErrRunInProgress
	}
	defer o.running.Store(false)
	metrics.SyncRunning.Set(1)
	defer metrics.SyncRunning.Set(0)

	summary := Summary{RunID: uuid.NewString(), Mode: mode}
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, o.logger).With(logging.String(logging.FieldMode, mode))
	start := time.Now()
	logger.Info("sync run started", logging.String(logging.FieldEventType, "sync_start"))

	err := o.run(ctx, logger, mode, &summary)
	summary.Duration = time.Since(start)
	metrics.RecordSyncRun(mode, summary.Duration, err)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "sync_complete"),
		logging.Int("pages", summary.Pages),
		logging.Int("candidates", summary.Candidates),
		logging.Int("skipped", summary.Skipped),
		logging.Int("no_media", summary.NoMedia),
		logging.Int("stored", summary.Stored),
		logging.Int("linked", summary.Linked),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	}
	if err != nil {
		logging.ErrorWithContext(logger, "sync run ended early", "sync_aborted", append(attrs, logging.Error(err))...)
		return summary, err
	}
	logger.Info("sync run completed", logging.Args(attrs...)...)
	return summary, nil
}

func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger, mode string, summary *Summary) error {
	if o.deps.Session != nil && o.deps.Session.Configured() {
		if !o.deps.Session.Login(ctx) {
			return ErrAuthentication
		}
	} else {
		logging.WarnWithContext(logger, "running without source login", "sync_unauthenticated",
			logging.String(logging.FieldErrorHint, "configure source credentials"),
			logging.String(logging.FieldImpact, "titles whose pages need a session are skipped"),
		)
	}

	state := &runState{summary: summary}
	failures := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if page > 1 {
			if err := o.sleep(ctx, o.pageDelay); err != nil {
				return err
			}
		}

		listings, err := o.deps.Lister.List(ctx, page)
		summary.Pages++
		pageLogger := logger.With(logging.Int(logging.FieldPage, page))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.PagesFetched.WithLabelValues("error").Inc()
			failures++
			logging.WarnWithContext(pageLogger, "listing page failed", "listing_failed",
				logging.Error(err),
				logging.Int("consecutive_failures", failures),
				logging.String(logging.FieldImpact, "page skipped"),
			)
			if mode == config.ModeIncremental {
				return nil
			}
			if failures >= o.maxConsecutiveFails {
				logging.WarnWithContext(pageLogger, "stopping crawl after repeated page failures", "listing_gave_up",
					logging.Int("consecutive_failures", failures),
					logging.String(logging.FieldImpact, "remaining pages wait for the next run"),
				)
				return nil
			}
			continue
		}
		failures = 0

		if len(listings) == 0 {
			metrics.PagesFetched.WithLabelValues("empty").Inc()
			pageLogger.Info("listing exhausted", logging.String(logging.FieldEventType, "listing_end"))
			return nil
		}
		metrics.PagesFetched.WithLabelValues("ok").Inc()
		pageLogger.Info("page listed",
			logging.String(logging.FieldEventType, "listing_page"),
			logging.Int("candidates", len(listings)),
		)

		for _, listing := range listings {
			if err := o.processCandidate(ctx, pageLogger, listing, state); err != nil {
				return err
			}
		}

		if mode == config.ModeIncremental {
			return nil
		}
		if o.maxPages > 0 && page >= o.maxPages {
			pageLogger.Info("page limit reached", logging.Int("max_pages", o.maxPages))
			return nil
		}
	}
}

type runState struct {
	summary       *Summary
	detailFetches int
}

// processCandidate handles one listing. It returns an error only when the
// context ends; every other failure is logged and counted.
func (o *Orchestrator) processCandidate(ctx context.Context, logger *slog.Logger, listing source.Listing, state *runState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	summary := state.summary
	summary.Candidates++
	logger = logger.With(
		logging.String(logging.FieldTitle, listing.Title),
		logging.Int(logging.FieldYear, listing.Year),
	)

	if listing.Year != 0 {
		existing, err := o.deps.Store.FindTitle(ctx, listing.Title, listing.Year)
		if err != nil {
			logging.WarnWithContext(logger, "existence check failed", "catalog_lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "candidate processed without the skip check"),
			)
		} else if existing.Linked() {
			summary.Skipped++
			metrics.Candidates.WithLabelValues(metrics.OutcomeSkipped).Inc()
			logger.Debug("already linked, skipping")
			return nil
		}
	}

	if state.detailFetches > 0 {
		if err := o.sleep(ctx, o.candidateDelay()); err != nil {
			return err
		}
	}
	state.detailFetches++

	details, err := o.deps.Details.Resolve(ctx, listing.DetailURL)
	if err != nil {
		return err
	}
	if details == nil {
		summary.NoMedia++
		metrics.Candidates.WithLabelValues(metrics.OutcomeNoMedia).Inc()
		logger.Info("no stream resolved, skipping",
			logging.String(logging.FieldEventType, "candidate_no_media"),
			logging.String(logging.FieldURL, listing.DetailURL),
		)
		return nil
	}

	var record *identification.Record
	if o.deps.Identity != nil {
		record, err = o.deps.Identity.Match(ctx, listing.Title, listing.Year)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.WarnWithContext(logger, "identity resolution failed", "identify_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "title stored unlinked and retried next run"),
			)
			record = nil
		}
	}

	entry := o.buildEntry(listing, details, record)
	titleID, err := o.deps.Store.UpsertTitleAndStream(ctx, entry)
	if err != nil {
		summary.Failed++
		metrics.Candidates.WithLabelValues(metrics.OutcomeFailed).Inc()
		logging.ErrorWithContext(logger, "catalog write failed", "catalog_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check disk space and database permissions"),
		)
		return nil
	}

	summary.Stored++
	outcome := metrics.OutcomeStored
	if entry.IMDBID != "" {
		summary.Linked++
		outcome = metrics.OutcomeLinked
	}
	metrics.Candidates.WithLabelValues(outcome).Inc()
	logger.Info("title stored",
		logging.String(logging.FieldEventType, "candidate_stored"),
		logging.Int64("title_id", titleID),
		logging.String("imdb_id", entry.IMDBID),
	)
	return nil
}

// buildEntry keeps the scraped title and year as the catalog key and prefers
// canonical metadata over scraped values.
func (o *Orchestrator) buildEntry(listing source.Listing, details *source.Details, record *identification.Record) catalog.Entry {
	entry := catalog.Entry{
		Title:         listing.Title,
		Year:          listing.Year,
		StreamURL:     details.StreamURL,
		StreamQuality: details.Quality,
		StreamLabel:   streamLabel(o.sourceName, details.Quality),
	}
	entry.Poster = firstNonEmpty(details.Poster, listing.Poster)
	entry.Description = details.Description
	if genre := strings.TrimSpace(details.Genre); genre != "" {
		entry.Genres = strings.Split(genre, ",")
	}
	if record == nil {
		return entry
	}
	entry.IMDBID = record.IMDBID
	entry.TMDBID = record.TMDBID
	entry.Rating = record.Rating
	entry.Runtime = record.Runtime
	entry.Language = record.Language
	entry.Poster = firstNonEmpty(record.Poster, entry.Poster)
	entry.Description = firstNonEmpty(record.Overview, entry.Description)
	if len(record.Genres) > 0 {
		entry.Genres = record.Genres
	}
	return entry
}

func (o *Orchestrator) candidateDelay() time.Duration {
	if o.candidateDelayMax <= o.candidateDelayMin {
		return o.candidateDelayMin
	}
	return o.candidateDelayMin + rand.N(o.candidateDelayMax-o.candidateDelayMin+1)
}

func streamLabel(sourceName, quality string) string {
	if quality == "" {
		return sourceName
	}
	return sourceName + " - " + quality
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
