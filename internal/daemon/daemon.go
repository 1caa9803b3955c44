package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/metrics"
	"reelsync/internal/syncer"
)

// ErrNotRunning is returned by operations that need a started daemon.
var ErrNotRunning = errors.New("daemon is not running")

// Runner executes sync passes. *syncer.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, mode string) (syncer.Summary, error)
	Running() bool
}

// RunRecord describes the most recent finished run.
type RunRecord struct {
	Trigger    string
	FinishedAt time.Time
	Summary    syncer.Summary
	Err        error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	SyncActive   bool
	Schedule     string
	NextRun      time.Time
	DatabasePath string
	LockFilePath string
	LastRun      *RunRecord
}

// Daemon schedules sync runs and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	runner   Runner
	schedule cron.Schedule

	lockPath string
	lock     *flock.Flock

	cron    *cron.Cron
	entryID cron.EntryID
	server  *apiServer

	// state orders lifecycle changes against runs.Add.
	state   sync.Mutex
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	runs    sync.WaitGroup

	mu      sync.Mutex
	lastRun *RunRecord
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, runner Runner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || runner == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, runner, and logger")
	}
	schedule, err := config.ParseSchedule(cfg.Sync.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse sync schedule %q: %w", cfg.Sync.Schedule, err)
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		runner:   runner,
		schedule: schedule,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, starts the scheduler and the optional HTTP
// listener, and kicks off the startup run when configured.
func (d *Daemon) Start(ctx context.Context) error {
	d.state.Lock()
	defer d.state.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another reelsync daemon already owns %s", d.cfg.Paths.DataDir)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	server, err := newAPIServer(d.cfg, d, d.logger)
	if err == nil {
		err = server.start(d.ctx)
	}
	if err != nil {
		d.cancel()
		_ = d.lock.Unlock()
		d.ctx, d.cancel = nil, nil
		return fmt.Errorf("start http listener: %w", err)
	}
	d.server = server

	cl := cronLogger{logger: d.logger}
	d.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))
	runCtx := d.ctx
	d.entryID = d.cron.Schedule(d.schedule, cron.FuncJob(func() {
		d.execute(runCtx, d.cfg.Sync.Mode, "schedule")
	}))
	d.cron.Start()
	d.running.Store(true)

	d.logger.Info("reelsync daemon started",
		logging.String("lock", d.lockPath),
		logging.String("schedule", d.cfg.Sync.Schedule),
		logging.String(logging.FieldMode, d.cfg.Sync.Mode),
	)

	if d.cfg.Sync.RunOnStart {
		mode := d.cfg.Sync.Mode
		if d.cfg.Sync.FullOnStart {
			mode = config.ModeFull
		}
		d.runs.Add(1)
		go func() {
			defer d.runs.Done()
			d.execute(runCtx, mode, "startup")
		}()
	}
	return nil
}

// Stop halts scheduling, cancels and waits for the active run, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	d.state.Lock()
	if !d.running.CompareAndSwap(true, false) {
		d.state.Unlock()
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx, d.cancel = nil, nil
	d.state.Unlock()

	d.server.stop()
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
	d.runs.Wait()

	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if the next start is refused"),
		)
	}
	d.logger.Info("reelsync daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Wait blocks until ctx ends, then stops the daemon.
func (d *Daemon) Wait(ctx context.Context) {
	<-ctx.Done()
	d.Stop()
}

// TriggerSync starts an asynchronous run. An empty mode uses the configured
// default.
func (d *Daemon) TriggerSync(mode string) error {
	if !d.running.Load() {
		return ErrNotRunning
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = d.cfg.Sync.Mode
	}
	if mode != config.ModeIncremental && mode != config.ModeFull {
		return fmt.Errorf("unknown sync mode %q", mode)
	}
	if d.runner.Running() {
		return syncer.ErrRunInProgress
	}

	d.state.Lock()
	defer d.state.Unlock()
	if !d.running.Load() {
		return ErrNotRunning
	}
	ctx := d.ctx
	d.runs.Add(1)
	go func() {
		defer d.runs.Done()
		d.execute(ctx, mode, "api")
	}()
	return nil
}

func (d *Daemon) execute(ctx context.Context, mode, trigger string) {
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if d.runner.Running() {
		metrics.RecordSkippedRun(mode)
		logging.WarnWithContext(d.logger, "sync trigger skipped; previous run still active", "sync_overlap",
			logging.String("trigger", trigger),
			logging.String(logging.FieldMode, mode),
			logging.String(logging.FieldErrorHint, "lengthen sync.schedule if this repeats"),
			logging.String(logging.FieldImpact, "this trigger is dropped"),
		)
		return
	}

	summary, err := d.runner.Run(ctx, mode)
	if errors.Is(err, syncer.ErrRunInProgress) {
		return
	}

	d.mu.Lock()
	d.lastRun = &RunRecord{
		Trigger:    trigger,
		FinishedAt: time.Now(),
		Summary:    summary,
		Err:        err,
	}
	d.mu.Unlock()

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		d.logger.Info("sync run interrupted by shutdown", logging.String("trigger", trigger))
	case errors.Is(err, syncer.ErrAuthentication):
		logging.ErrorWithContext(d.logger, "sync run aborted", "sync_auth_failed",
			logging.String("trigger", trigger),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check source.username and source.password"),
			logging.String(logging.FieldImpact, "no titles synced until the next trigger"),
		)
	default:
		logging.ErrorWithContext(d.logger, "sync run failed", "sync_failed",
			logging.String("trigger", trigger),
			logging.Error(err),
		)
	}
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		SyncActive:   d.runner.Running(),
		Schedule:     d.cfg.Sync.Schedule,
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
	if status.Running && d.cron != nil {
		status.NextRun = d.cron.Entry(d.entryID).Next
	}
	d.mu.Lock()
	if d.lastRun != nil {
		record := *d.lastRun
		status.LastRun = &record
	}
	d.mu.Unlock()
	return status
}

// PID reports the daemon's process id.
func (d *Daemon) PID() int {
	return os.Getpid()
}

// cronLogger routes cron's logr-style callbacks into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{
		logging.String(logging.FieldEventType, "cron_error"),
		logging.Error(err),
	}, keysAndValues...)
	l.logger.Error("cron: "+msg, args...)
}
