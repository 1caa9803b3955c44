package catalog

import "time"

// Title is a catalog entry. Zero values mean the field is unknown.
type Title struct {
	ID          int64
	Title       string
	Year        int
	IMDBID      string
	TMDBID      int64
	Genres      []string
	Rating      float64
	Poster      string
	Description string
	Runtime     int
	Language    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Linked reports whether the title carries a canonical IMDb id.
func (t *Title) Linked() bool {
	return t != nil && t.IMDBID != ""
}

// Stream is a playable URL owned by a title.
type Stream struct {
	ID        int64
	TitleID   int64
	Label     string
	URL       string
	Quality   string
	CreatedAt time.Time
}

// Metadata holds the mergeable title fields. Zero values are treated as
// absent and never overwrite stored data.
type Metadata struct {
	IMDBID      string
	TMDBID      int64
	Genres      []string
	Rating      float64
	Poster      string
	Description string
	Runtime     int
	Language    string
}

// Entry is one discovered title plus an optional stream.
type Entry struct {
	Title string
	Year  int
	Metadata
	StreamURL     string
	StreamLabel   string
	StreamQuality string
}

// ListOptions pages and filters title listings.
type ListOptions struct {
	Limit      int
	Offset     int
	LinkedOnly bool
}

// Counts summarizes catalog contents.
type Counts struct {
	Total    int64
	Linked   int64
	Unlinked int64
	Streams  int64
}
