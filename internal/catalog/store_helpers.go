package catalog

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const titleColumns = "id, title, year, imdb_id, tmdb_id, genre, rating, poster, description, runtime, language, created_at, updated_at"

const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func scanTitle(scanner interface{ Scan(dest ...any) error }) (*Title, error) {
	var (
		id          int64
		title       string
		year        sql.NullInt64
		imdbID      sql.NullString
		tmdbID      sql.NullInt64
		genre       sql.NullString
		rating      sql.NullFloat64
		poster      sql.NullString
		description sql.NullString
		runtime     sql.NullInt64
		language    sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&title,
		&year,
		&imdbID,
		&tmdbID,
		&genre,
		&rating,
		&poster,
		&description,
		&runtime,
		&language,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	t := &Title{
		ID:          id,
		Title:       title,
		Year:        int(year.Int64),
		IMDBID:      imdbID.String,
		TMDBID:      tmdbID.Int64,
		Genres:      splitGenres(genre.String),
		Rating:      rating.Float64,
		Poster:      poster.String,
		Description: description.String,
		Runtime:     int(runtime.Int64),
		Language:    language.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		t.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		t.UpdatedAt = updated
	}
	return t, nil
}

func scanStream(scanner interface{ Scan(dest ...any) error }) (*Stream, error) {
	var (
		stream     Stream
		quality    sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&stream.ID, &stream.TitleID, &stream.Label, &stream.URL, &quality, &createdRaw); err != nil {
		return nil, err
	}
	stream.Quality = quality.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		stream.CreatedAt = created
	}
	return &stream, nil
}

func nullableString(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableFloat(value float64) any {
	if value == 0 {
		return nil
	}
	return value
}

func joinGenres(genres []string) any {
	cleaned := make([]string, 0, len(genres))
	for _, genre := range genres {
		if genre = strings.TrimSpace(genre); genre != "" {
			cleaned = append(cleaned, genre)
		}
	}
	return nullableString(strings.Join(cleaned, ", "))
}

func splitGenres(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	genres := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			genres = append(genres, part)
		}
	}
	return genres
}

func timestamp(now time.Time) string {
	return now.UTC().Format(timestampLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// likePattern escapes LIKE wildcards so the query matches literally.
func likePattern(query string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(query)) + "%"
}

func normalizeListOptions(opts ListOptions) ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
