package daemon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/syncer"
	"reelsync/internal/testsupport"
)

type fakeRunner struct {
	mu      sync.Mutex
	modes   []string
	active  atomic.Bool
	started chan string
	release chan struct{}
	err     error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{started: make(chan string, 4)}
}

func (f *fakeRunner) Run(ctx context.Context, mode string) (syncer.Summary, error) {
	if !f.active.CompareAndSwap(false, true) {
		return syncer.Summary{}, syncer.ErrRunInProgress
	}
	defer f.active.Store(false)
	f.mu.Lock()
	f.modes = append(f.modes, mode)
	f.mu.Unlock()
	f.started <- mode
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return syncer.Summary{Mode: mode}, ctx.Err()
		}
	}
	return syncer.Summary{Mode: mode, Stored: 1}, f.err
}

func (f *fakeRunner) Running() bool { return f.active.Load() }

func (f *fakeRunner) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.modes)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Sync.RunOnStart = false
	cfg.Sync.Schedule = "@every 1h"
	return cfg
}

func newTestDaemon(t *testing.T, cfg *config.Config, runner Runner) (*Daemon, *catalog.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	d, err := New(cfg, store, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, store
}

func waitStarted(t *testing.T, runner *fakeRunner) string {
	t.Helper()
	select {
	case mode := <-runner.started:
		return mode
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for run to start")
		return ""
	}
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	d, _ := newTestDaemon(t, cfg, newFakeRunner())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.NextRun.IsZero() {
		t.Fatal("expected next run to be scheduled")
	}
	if status.LockFilePath != cfg.LockPath() || status.DatabasePath != cfg.DatabasePath() {
		t.Fatalf("unexpected paths %+v", status)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	first, store := newTestDaemon(t, cfg, newFakeRunner())
	second, err := New(cfg, store, newFakeRunner(), logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(second.Stop)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected second daemon on the same data dir to fail")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestRunOnStartUsesFullMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sync.RunOnStart = true
	cfg.Sync.FullOnStart = true
	runner := newFakeRunner()
	d, _ := newTestDaemon(t, cfg, runner)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if mode := waitStarted(t, runner); mode != config.ModeFull {
		t.Fatalf("startup mode = %q, want full", mode)
	}
	d.Stop()

	last := d.Status().LastRun
	if last == nil || last.Trigger != "startup" || last.Summary.Stored != 1 {
		t.Fatalf("unexpected last run %+v", last)
	}
}

func TestStopWaitsForActiveRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sync.RunOnStart = true
	runner := newFakeRunner()
	runner.release = make(chan struct{})
	d, _ := newTestDaemon(t, cfg, runner)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStarted(t, runner)

	d.Stop()
	if runner.Running() {
		t.Fatal("expected run to have finished before Stop returned")
	}
	last := d.Status().LastRun
	if last == nil || !errors.Is(last.Err, context.Canceled) {
		t.Fatalf("expected cancelled last run, got %+v", last)
	}
}

func TestOverlappingTriggersAreSkipped(t *testing.T) {
	cfg := testConfig(t)
	runner := newFakeRunner()
	runner.release = make(chan struct{})
	d, _ := newTestDaemon(t, cfg, runner)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.TriggerSync(""); err != nil {
		t.Fatalf("TriggerSync: %v", err)
	}
	if mode := waitStarted(t, runner); mode != cfg.Sync.Mode {
		t.Fatalf("mode = %q, want %q", mode, cfg.Sync.Mode)
	}

	if err := d.TriggerSync(config.ModeFull); !errors.Is(err, syncer.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	d.execute(context.Background(), config.ModeFull, "schedule")
	if runner.runCount() != 1 {
		t.Fatalf("expected overlapping tick to be skipped, runs=%d", runner.runCount())
	}

	close(runner.release)
	d.Stop()
}

func TestTriggerSyncDuringStopNeverOutlivesShutdown(t *testing.T) {
	cfg := testConfig(t)
	runner := newFakeRunner()
	runner.started = make(chan string, 64)
	d, _ := newTestDaemon(t, cfg, runner)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				err := d.TriggerSync("")
				if err != nil && !errors.Is(err, ErrNotRunning) && !errors.Is(err, syncer.ErrRunInProgress) {
					t.Errorf("TriggerSync: %v", err)
					return
				}
			}
		}()
	}
	d.Stop()
	wg.Wait()

	if err := d.TriggerSync(""); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning after stop, got %v", err)
	}
	// Stop has returned, so every accepted trigger has already finished.
	if runner.Running() {
		t.Fatal("expected no run active after Stop")
	}
}

func TestTriggerSyncValidation(t *testing.T) {
	cfg := testConfig(t)
	d, _ := newTestDaemon(t, cfg, newFakeRunner())

	if err := d.TriggerSync(""); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.TriggerSync("sideways"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sync.Schedule = "every tuesday"
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := New(cfg, store, newFakeRunner(), logging.NewNop()); err == nil {
		t.Fatal("expected schedule error")
	}
}
