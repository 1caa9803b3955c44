// Package metrics exposes Prometheus collectors for the sync pipeline.
//
// Collectors are registered on the default registry at init so any package
// can record without plumbing a handle. The daemon serves them over
// promhttp when metrics.bind is set.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Candidate outcomes.
const (
	OutcomeSkipped = "skipped"
	OutcomeNoMedia = "no_media"
	OutcomeLinked  = "linked"
	OutcomeStored  = "unlinked"
	OutcomeFailed  = "failed"
)

var (
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_sync_runs_total",
			Help: "Sync runs by mode and result",
		},
		[]string{"mode", "result"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelsync_sync_duration_seconds",
			Help:    "Wall time of completed sync runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900, 1800, 3600},
		},
		[]string{"mode"},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelsync_sync_last_success_timestamp",
			Help: "Unix time of the last successful sync run",
		},
	)

	SyncRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelsync_sync_running",
			Help: "1 while a sync run is active",
		},
	)

	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_source_pages_total",
			Help: "Listing page fetches by result",
		},
		[]string{"result"}, // "ok", "empty", "error"
	)

	Candidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_candidates_total",
			Help: "Listing candidates processed by outcome",
		},
		[]string{"outcome"},
	)

	SourceLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_source_logins_total",
			Help: "Source login attempts by result",
		},
		[]string{"result"},
	)

	DetailFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_source_detail_fetches_total",
			Help: "Detail page fetches by result",
		},
		[]string{"result"}, // "ok", "absent", "reauth", "error"
	)

	TMDBRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_tmdb_requests_total",
			Help: "TMDB API requests by endpoint and HTTP status",
		},
		[]string{"endpoint", "status"},
	)

	TMDBRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelsync_tmdb_request_duration_seconds",
			Help:    "Latency of TMDB API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	TMDBBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelsync_tmdb_circuit_breaker_state",
			Help: "TMDB circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	StoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsync_catalog_writes_total",
			Help: "Catalog write operations by kind and result",
		},
		[]string{"operation", "result"},
	)
)

// RecordSyncRun records a finished run.
func RecordSyncRun(mode string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	} else {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
	SyncRuns.WithLabelValues(mode, result).Inc()
	SyncDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordSkippedRun records a trigger that found a run already active.
func RecordSkippedRun(mode string) {
	SyncRuns.WithLabelValues(mode, "skipped").Inc()
}

// RecordLogin records a login attempt.
func RecordLogin(ok bool) {
	if ok {
		SourceLogins.WithLabelValues("success").Inc()
		return
	}
	SourceLogins.WithLabelValues("failure").Inc()
}

// RecordTMDBRequest records one TMDB round trip. status is zero when no
// response was received.
func RecordTMDBRequest(endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	TMDBRequests.WithLabelValues(endpoint, label).Inc()
	TMDBRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordStoreWrite records a catalog write.
func RecordStoreWrite(operation string, err error) {
	if err != nil {
		StoreWrites.WithLabelValues(operation, "error").Inc()
		return
	}
	StoreWrites.WithLabelValues(operation, "ok").Inc()
}
