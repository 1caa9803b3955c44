package api

import (
	"context"
	"strings"

	"reelsync/internal/catalog"
)

// CatalogReader abstracts the read-only catalog queries needed by the API.
type CatalogReader interface {
	ListTitles(ctx context.Context, opts catalog.ListOptions) ([]*catalog.Title, error)
	SearchTitles(ctx context.Context, query string, opts catalog.ListOptions) ([]*catalog.Title, error)
	GetTitleByID(ctx context.Context, id int64) (*catalog.Title, error)
	ListStreams(ctx context.Context, titleID int64) ([]*catalog.Stream, error)
	Counts(ctx context.Context) (catalog.Counts, error)
}

// ListQuery filters a title listing.
type ListQuery struct {
	Search     string
	LinkedOnly bool
	Limit      int
	Offset     int
}

// CatalogService exposes read-only catalog operations returning API DTOs.
type CatalogService struct {
	store CatalogReader
}

// NewCatalogService constructs a CatalogService around the provided reader.
func NewCatalogService(store CatalogReader) *CatalogService {
	if store == nil {
		return nil
	}
	return &CatalogService{store: store}
}

// List returns titles matching query.
func (s *CatalogService) List(ctx context.Context, query ListQuery) ([]Title, error) {
	if s == nil || s.store == nil {
		return []Title{}, nil
	}
	opts := catalog.ListOptions{Limit: query.Limit, Offset: query.Offset, LinkedOnly: query.LinkedOnly}
	var (
		titles []*catalog.Title
		err    error
	)
	if search := strings.TrimSpace(query.Search); search != "" {
		titles, err = s.store.SearchTitles(ctx, search, opts)
	} else {
		titles, err = s.store.ListTitles(ctx, opts)
	}
	if err != nil {
		return nil, err
	}
	return FromTitles(titles), nil
}

// Describe fetches a single title with its streams. A nil result means the
// title does not exist.
func (s *CatalogService) Describe(ctx context.Context, id int64) (*TitleDetail, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	title, err := s.store.GetTitleByID(ctx, id)
	if err != nil || title == nil {
		return nil, err
	}
	streams, err := s.store.ListStreams(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TitleDetail{Title: FromTitle(title), Streams: FromStreams(streams)}, nil
}

// Stats returns catalog counts.
func (s *CatalogService) Stats(ctx context.Context) (CatalogStats, error) {
	if s == nil || s.store == nil {
		return CatalogStats{}, nil
	}
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return CatalogStats{}, err
	}
	return FromCounts(counts), nil
}
