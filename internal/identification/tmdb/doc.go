// Package tmdb provides the minimal TMDB API client used during identity
// reconciliation.
//
// It exposes movie search with optional year and region filters, movie
// details with external ids appended, and lookup by IMDb id. Every request is
// paced by a token bucket, retried under the shared policy, and guarded by a
// circuit breaker so a TMDB outage degrades a sync run to unlinked titles
// instead of stalling it.
package tmdb
