package api

import (
	"time"

	"reelsync/internal/catalog"
	"reelsync/internal/syncer"
)

// FromTitle converts a catalog title to its API representation.
func FromTitle(title *catalog.Title) Title {
	if title == nil {
		return Title{}
	}
	return Title{
		ID:          title.ID,
		Title:       title.Title,
		Year:        title.Year,
		IMDBID:      title.IMDBID,
		TMDBID:      title.TMDBID,
		Linked:      title.Linked(),
		Genres:      title.Genres,
		Rating:      title.Rating,
		Poster:      title.Poster,
		Description: title.Description,
		Runtime:     title.Runtime,
		Language:    title.Language,
		CreatedAt:   formatTime(title.CreatedAt),
		UpdatedAt:   formatTime(title.UpdatedAt),
	}
}

// FromTitles converts a slice of catalog titles. The result is never nil so
// empty lists encode as [].
func FromTitles(titles []*catalog.Title) []Title {
	out := make([]Title, 0, len(titles))
	for _, title := range titles {
		if title == nil {
			continue
		}
		out = append(out, FromTitle(title))
	}
	return out
}

// FromStream converts a catalog stream.
func FromStream(stream *catalog.Stream) Stream {
	if stream == nil {
		return Stream{}
	}
	return Stream{
		ID:        stream.ID,
		TitleID:   stream.TitleID,
		Label:     stream.Label,
		URL:       stream.URL,
		Quality:   stream.Quality,
		CreatedAt: formatTime(stream.CreatedAt),
	}
}

// FromStreams converts a slice of catalog streams.
func FromStreams(streams []*catalog.Stream) []Stream {
	out := make([]Stream, 0, len(streams))
	for _, stream := range streams {
		if stream == nil {
			continue
		}
		out = append(out, FromStream(stream))
	}
	return out
}

// FromCounts converts catalog counts.
func FromCounts(counts catalog.Counts) CatalogStats {
	return CatalogStats{
		Titles:   counts.Total,
		Linked:   counts.Linked,
		Unlinked: counts.Unlinked,
		Streams:  counts.Streams,
	}
}

// FromSummary converts a sync run summary.
func FromSummary(summary syncer.Summary) SyncSummary {
	return SyncSummary{
		RunID:      summary.RunID,
		Mode:       summary.Mode,
		Pages:      summary.Pages,
		Candidates: summary.Candidates,
		Skipped:    summary.Skipped,
		NoMedia:    summary.NoMedia,
		Stored:     summary.Stored,
		Linked:     summary.Linked,
		Failed:     summary.Failed,
		DurationMS: summary.Duration.Milliseconds(),
	}
}

// FormatTime renders t in the API timestamp format, or "" when zero.
func FormatTime(t time.Time) string {
	return formatTime(t)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
