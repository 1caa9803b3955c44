// Package api defines wire-format types and converters shared by the daemon
// HTTP API and the CLI's JSON output. It translates catalog models and sync
// summaries into transport-friendly DTOs so consumers never couple to
// internal types.
//
// # Key Types
//
// Title/Stream: transport representation of a catalog title and its streams.
//
// SyncSummary: outcome counters of one sync run.
//
// DaemonStatus: daemon lifecycle, schedule, and last run information.
//
// # Converters
//
// FromTitle/FromTitles, FromStream/FromStreams, FromCounts, FromSummary.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Unknown values are omitted rather than sent as
// zero. Timestamps use RFC3339 with milliseconds.
package api
