// Package syncer drives a crawl of the content source into the catalog.
//
// A run lists pages, and for each candidate decides whether work is needed
// (an already linked title with a known year is skipped), resolves its
// stream, reconciles it with TMDB, and upserts the result. The pipeline is
// strictly sequential and paced: a fixed delay separates page fetches and a
// randomized delay separates detail fetches. Only one run may be active per
// Orchestrator; overlapping triggers are refused with ErrRunInProgress.
package syncer
