package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Title describes a catalog title in a transport-friendly format.
type Title struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Year        int      `json:"year,omitempty"`
	IMDBID      string   `json:"imdbId,omitempty"`
	TMDBID      int64    `json:"tmdbId,omitempty"`
	Linked      bool     `json:"linked"`
	Genres      []string `json:"genres,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Poster      string   `json:"poster,omitempty"`
	Description string   `json:"description,omitempty"`
	Runtime     int      `json:"runtime,omitempty"`
	Language    string   `json:"language,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// Stream describes a playable stream of a title.
type Stream struct {
	ID        int64  `json:"id"`
	TitleID   int64  `json:"titleId"`
	Label     string `json:"label"`
	URL       string `json:"url"`
	Quality   string `json:"quality,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// TitleDetail bundles a title with its streams.
type TitleDetail struct {
	Title   Title    `json:"title"`
	Streams []Stream `json:"streams"`
}

// CatalogStats summarizes catalog contents.
type CatalogStats struct {
	Titles   int64 `json:"titles"`
	Linked   int64 `json:"linked"`
	Unlinked int64 `json:"unlinked"`
	Streams  int64 `json:"streams"`
}

// SyncSummary reports the outcome of one sync run.
type SyncSummary struct {
	RunID      string `json:"runId"`
	Mode       string `json:"mode"`
	Pages      int    `json:"pages"`
	Candidates int    `json:"candidates"`
	Skipped    int    `json:"skipped"`
	NoMedia    int    `json:"noMedia"`
	Stored     int    `json:"stored"`
	Linked     int    `json:"linked"`
	Failed     int    `json:"failed"`
	DurationMS int64  `json:"durationMs"`
}

// LastRun captures the most recent completed run.
type LastRun struct {
	Trigger    string      `json:"trigger"`
	FinishedAt string      `json:"finishedAt"`
	Error      string      `json:"error,omitempty"`
	Summary    SyncSummary `json:"summary"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool     `json:"running"`
	SyncActive   bool     `json:"syncActive"`
	PID          int      `json:"pid"`
	Schedule     string   `json:"schedule"`
	NextRun      string   `json:"nextRun,omitempty"`
	DatabasePath string   `json:"databasePath"`
	LockFilePath string   `json:"lockFilePath"`
	LastRun      *LastRun `json:"lastRun,omitempty"`
}

// TitleListResponse wraps a collection of titles.
type TitleListResponse struct {
	Items []Title `json:"items"`
}

// SyncTriggerResponse acknowledges a requested sync.
type SyncTriggerResponse struct {
	Mode     string `json:"mode"`
	Accepted bool   `json:"accepted"`
}
