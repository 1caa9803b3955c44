// Package linking attaches an operator-chosen IMDb id to a catalog title.
package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"reelsync/internal/catalog"
	"reelsync/internal/identification"
	"reelsync/internal/identification/tmdb"
	"reelsync/internal/logging"
)

var (
	// ErrTitleNotFound is returned when the title id does not exist.
	ErrTitleNotFound = errors.New("title not found")
	// ErrNoMatch is returned when TMDB knows nothing about the IMDb id.
	ErrNoMatch = errors.New("no tmdb record for imdb id")
	// ErrAlreadyLinked is returned when the title carries a different IMDb id.
	ErrAlreadyLinked = errors.New("title already linked to a different imdb id")
	// ErrInvalidIMDBID is returned for ids not shaped like tt<digits>.
	ErrInvalidIMDBID = identification.ErrInvalidIMDBID
)

// IdentityResolver resolves canonical records by IMDb id.
type IdentityResolver interface {
	MatchByIMDBID(ctx context.Context, imdbID string) (*identification.Record, error)
}

// Store is the catalog surface used for linking.
type Store interface {
	GetTitleByID(ctx context.Context, id int64) (*catalog.Title, error)
	UpdateTitleMetadata(ctx context.Context, id int64, meta catalog.Metadata) error
}

// Linker performs manual links.
type Linker struct {
	store    Store
	identity IdentityResolver
	logger   *slog.Logger
}

// New constructs a Linker.
func New(store Store, identity IdentityResolver, logger *slog.Logger) *Linker {
	return &Linker{
		store:    store,
		identity: identity,
		logger:   logging.NewComponentLogger(logger, "linking"),
	}
}

// Link resolves imdbID and merges its metadata into the title. Relinking a
// title to the id it already carries refreshes its metadata.
func (l *Linker) Link(ctx context.Context, titleID int64, imdbID string) (*catalog.Title, error) {
	imdbID = strings.TrimSpace(imdbID)
	if !tmdb.ValidIMDBID(imdbID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIMDBID, imdbID)
	}
	title, err := l.store.GetTitleByID(ctx, titleID)
	if err != nil {
		return nil, fmt.Errorf("load title %d: %w", titleID, err)
	}
	if title == nil {
		return nil, fmt.Errorf("%w: %d", ErrTitleNotFound, titleID)
	}
	if title.IMDBID != "" && title.IMDBID != imdbID {
		return nil, fmt.Errorf("%w: %d is %s", ErrAlreadyLinked, titleID, title.IMDBID)
	}

	record, err := l.identity.MatchByIMDBID(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, imdbID)
	}

	meta := catalog.Metadata{
		IMDBID:      imdbID,
		TMDBID:      record.TMDBID,
		Genres:      record.Genres,
		Rating:      record.Rating,
		Poster:      record.Poster,
		Description: record.Overview,
		Runtime:     record.Runtime,
		Language:    record.Language,
	}
	if err := l.store.UpdateTitleMetadata(ctx, titleID, meta); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrTitleNotFound, titleID)
		}
		return nil, fmt.Errorf("update title %d: %w", titleID, err)
	}

	l.logger.Info("title linked",
		logging.String(logging.FieldEventType, "manual_link"),
		logging.Int64("title_id", titleID),
		logging.String(logging.FieldTitle, title.Title),
		logging.String("imdb_id", imdbID),
		logging.Int64("tmdb_id", record.TMDBID),
	)

	updated, err := l.store.GetTitleByID(ctx, titleID)
	if err != nil {
		return nil, fmt.Errorf("reload title %d: %w", titleID, err)
	}
	return updated, nil
}
