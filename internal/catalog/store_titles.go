package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"reelsync/internal/metrics"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

const titleOrder = " ORDER BY (year IS NULL), year DESC, created_at DESC, id DESC"

// UpsertTitleAndStream records a discovered title and, when present, its
// stream. An existing (title, year) row is merged: each metadata column takes
// the incoming value only when it is non-empty. A stream already attached to
// the title under the same URL is left untouched.
func (s *Store) UpsertTitleAndStream(ctx context.Context, entry Entry) (int64, error) {
	ctx = ensureContext(ctx)
	name := strings.TrimSpace(entry.Title)
	if name == "" {
		return 0, errors.New("title must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var titleID int64
	err := retryOnBusy(ctx, func() error {
		id, err := s.upsertTx(ctx, name, entry)
		if err != nil {
			return err
		}
		titleID = id
		return nil
	})
	metrics.RecordStoreWrite("upsert", err)
	if err != nil {
		return 0, fmt.Errorf("upsert %q: %w", name, err)
	}
	return titleID, nil
}

func (s *Store) upsertTx(ctx context.Context, name string, entry Entry) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := timestamp(time.Now())
	var titleID int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM titles WHERE title = ? AND year IS ?",
		name, nullableInt(entry.Year),
	).Scan(&titleID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			`INSERT INTO titles (
                title, year, imdb_id, tmdb_id, genre, rating, poster, description, runtime, language, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			name,
			nullableInt(entry.Year),
			nullableString(entry.IMDBID),
			nullableInt64(entry.TMDBID),
			joinGenres(entry.Genres),
			nullableFloat(entry.Rating),
			nullableString(entry.Poster),
			nullableString(entry.Description),
			nullableInt(entry.Runtime),
			nullableString(entry.Language),
			now,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert title: %w", err)
		}
		if titleID, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("title id: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("find title: %w", err)
	default:
		if err := mergeMetadata(ctx, tx, titleID, entry.Metadata, now); err != nil {
			return 0, err
		}
	}

	if url := strings.TrimSpace(entry.StreamURL); url != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO streams (title_id, label, url, quality, created_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT (title_id, url) DO NOTHING`,
			titleID,
			strings.TrimSpace(entry.StreamLabel),
			url,
			nullableString(entry.StreamQuality),
			now,
		); err != nil {
			return 0, fmt.Errorf("insert stream: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return titleID, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func mergeMetadata(ctx context.Context, db execer, id int64, meta Metadata, now string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE titles SET
            imdb_id = COALESCE(?, imdb_id),
            tmdb_id = COALESCE(?, tmdb_id),
            genre = COALESCE(?, genre),
            rating = COALESCE(?, rating),
            poster = COALESCE(?, poster),
            description = COALESCE(?, description),
            runtime = COALESCE(?, runtime),
            language = COALESCE(?, language),
            updated_at = ?
        WHERE id = ?`,
		nullableString(meta.IMDBID),
		nullableInt64(meta.TMDBID),
		joinGenres(meta.Genres),
		nullableFloat(meta.Rating),
		nullableString(meta.Poster),
		nullableString(meta.Description),
		nullableInt(meta.Runtime),
		nullableString(meta.Language),
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("merge metadata: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("merge metadata rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTitleMetadata merges meta into an existing title.
func (s *Store) UpdateTitleMetadata(ctx context.Context, id int64, meta Metadata) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	err := retryOnBusy(ctx, func() error {
		return mergeMetadata(ctx, s.db, id, meta, timestamp(time.Now()))
	})
	metrics.RecordStoreWrite("update_metadata", err)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("title %d: %w", id, ErrNotFound)
	}
	return err
}

// DeleteTitle removes a title and, through the foreign key, its streams.
func (s *Store) DeleteTitle(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM titles WHERE id = ?", id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	metrics.RecordStoreWrite("delete", err)
	if err != nil {
		return fmt.Errorf("delete title %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("title %d: %w", id, ErrNotFound)
	}
	return nil
}

// FindTitle returns the title keyed by (title, year), or nil when absent.
func (s *Store) FindTitle(ctx context.Context, title string, year int) (*Title, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+titleColumns+" FROM titles WHERE title = ? AND year IS ?",
		strings.TrimSpace(title), nullableInt(year),
	)
	found, err := scanTitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find title: %w", err)
	}
	return found, nil
}

// TitleExists reports whether a (title, year) row exists.
func (s *Store) TitleExists(ctx context.Context, title string, year int) (bool, error) {
	found, err := s.FindTitle(ctx, title, year)
	if err != nil {
		return false, err
	}
	return found != nil, nil
}

// GetTitleByID fetches a title by identifier, or nil when absent.
func (s *Store) GetTitleByID(ctx context.Context, id int64) (*Title, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+titleColumns+" FROM titles WHERE id = ?", id)
	found, err := scanTitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get title: %w", err)
	}
	return found, nil
}

// GetTitleByIMDBID returns the earliest title linked to imdbID, or nil.
func (s *Store) GetTitleByIMDBID(ctx context.Context, imdbID string) (*Title, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+titleColumns+" FROM titles WHERE imdb_id = ? ORDER BY id LIMIT 1",
		strings.TrimSpace(imdbID),
	)
	found, err := scanTitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get title by imdb id: %w", err)
	}
	return found, nil
}

// ListTitles returns titles newest-year first. Unknown years sort last.
func (s *Store) ListTitles(ctx context.Context, opts ListOptions) ([]*Title, error) {
	opts = normalizeListOptions(opts)
	query := "SELECT " + titleColumns + " FROM titles"
	var args []any
	if opts.LinkedOnly {
		query += " WHERE imdb_id IS NOT NULL"
	}
	query += titleOrder + " LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)
	return s.queryTitles(ctx, query, args...)
}

// SearchTitles lists titles whose name contains query, case-insensitively
// for ASCII, in ListTitles order.
func (s *Store) SearchTitles(ctx context.Context, query string, opts ListOptions) ([]*Title, error) {
	opts = normalizeListOptions(opts)
	stmt := "SELECT " + titleColumns + ` FROM titles WHERE title LIKE ? ESCAPE '\'`
	if opts.LinkedOnly {
		stmt += " AND imdb_id IS NOT NULL"
	}
	stmt += titleOrder + " LIMIT ? OFFSET ?"
	return s.queryTitles(ctx, stmt, likePattern(query), opts.Limit, opts.Offset)
}

func (s *Store) queryTitles(ctx context.Context, query string, args ...any) ([]*Title, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	var titles []*Title
	for rows.Next() {
		title, err := scanTitle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}
	return titles, nil
}

// ListStreams returns a title's streams in insertion order.
func (s *Store) ListStreams(ctx context.Context, titleID int64) ([]*Stream, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title_id, label, url, quality, created_at FROM streams WHERE title_id = ? ORDER BY id",
		titleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var streams []*Stream
	for rows.Next() {
		stream, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		streams = append(streams, stream)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streams: %w", err)
	}
	return streams, nil
}

// Counts reports title and stream totals.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	ctx = ensureContext(ctx)
	var counts Counts
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1), COUNT(imdb_id) FROM titles",
	).Scan(&counts.Total, &counts.Linked); err != nil {
		return Counts{}, fmt.Errorf("count titles: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM streams").Scan(&counts.Streams); err != nil {
		return Counts{}, fmt.Errorf("count streams: %w", err)
	}
	counts.Unlinked = counts.Total - counts.Linked
	return counts, nil
}
