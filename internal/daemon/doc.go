// Package daemon coordinates the long-running reelsync process.
//
// It wires configuration, the catalog store, and the sync orchestrator into a
// single lifecycle with flock-based locking so only one process owns a data
// directory. Sync runs are triggered by a cron schedule, optionally once at
// startup, and on demand through the HTTP API. Overlapping triggers are
// skipped rather than queued. When metrics.bind is set, the same listener
// serves Prometheus metrics and a small JSON API over the catalog.
//
// Keep orchestration logic here: crawling and reconciliation live in the
// syncer package while the daemon focuses on startup, shutdown, and
// scheduling.
package daemon
