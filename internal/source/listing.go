package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reelsync/internal/config"
	"reelsync/internal/logging"
)

// Listing is one title card from a listing page.
type Listing struct {
	Title     string
	Year      int // 0 when the label carries no year
	Poster    string
	DetailURL string
}

var labelYearPattern = regexp.MustCompile(`^(.*?)\s*\((\d{4})\)$`)

// Lister reads the paginated "latest videos" grid.
type Lister struct {
	fetcher
	base       *url.URL
	listingURL string
	session    *Session
	logger     *slog.Logger
}

// NewLister builds a lister for the configured source. session may be nil.
func NewLister(cfg *config.Config, session *Session, logger *slog.Logger, opts ...Option) (*Lister, error) {
	base, err := url.Parse(cfg.Source.BaseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("parse source base url: %w", err)
	}
	o := buildOptions(cfg, opts)
	return &Lister{
		fetcher: fetcher{
			client:    o.httpClient,
			userAgent: cfg.Source.UserAgent,
			policy:    *o.policy,
		},
		base:       base,
		listingURL: cfg.Source.BaseURL + cfg.Source.ListingPath,
		session:    session,
		logger:     logging.NewComponentLogger(logger, "lister"),
	}, nil
}

// List returns the candidates on page (1-based). An empty slice means the
// listing is exhausted. Errors are returned only after retries run out.
func (l *Lister) List(ctx context.Context, page int) ([]Listing, error) {
	if page < 1 {
		page = 1
	}
	target := l.listingURL + "?page_id=" + strconv.Itoa(page)
	header := http.Header{}
	if l.session != nil {
		if credential := l.session.Credential(); credential != "" {
			header.Set("Cookie", credential)
		}
	}
	doc, err := l.document(ctx, target, header)
	if err != nil {
		return nil, fmt.Errorf("list page %d: %w", page, err)
	}
	listings := parseListings(doc, l.base)
	logging.WithContext(ctx, l.logger).Debug("listing page parsed",
		logging.Int(logging.FieldPage, page),
		logging.Int("candidates", len(listings)),
	)
	return listings, nil
}

// ParseListings extracts candidates from a listing page body.
func ParseListings(r io.Reader, base *url.URL) ([]Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	return parseListings(doc, base), nil
}

func parseListings(doc *goquery.Document, base *url.URL) []Listing {
	var listings []Listing
	doc.Find(".col-md-3").Each(func(_ int, cell *goquery.Selection) {
		href, _ := cell.Find("a.thumb").First().Attr("href")
		detailURL := resolveURL(base, href)
		if detailURL == "" {
			return
		}
		anchor := cell.Find("h4 a").First()
		label, ok := anchor.Attr("title")
		if !ok || strings.TrimSpace(label) == "" {
			label = anchor.Text()
		}
		title, year := SplitLabel(label)
		if title == "" {
			return
		}
		img := cell.Find("img").First()
		poster, ok := img.Attr("src")
		if !ok || strings.TrimSpace(poster) == "" {
			poster, _ = img.Attr("data-src")
		}
		listings = append(listings, Listing{
			Title:     title,
			Year:      year,
			Poster:    resolveURL(base, poster),
			DetailURL: detailURL,
		})
	})
	return listings
}

// SplitLabel separates a trailing "(YYYY)" from a card label. Labels without
// one return the whole label and year 0.
func SplitLabel(label string) (string, int) {
	label = strings.Join(strings.Fields(label), " ")
	match := labelYearPattern.FindStringSubmatch(label)
	if match == nil {
		return label, 0
	}
	year, err := strconv.Atoi(match[2])
	if err != nil {
		return label, 0
	}
	title := strings.TrimSpace(match[1])
	if title == "" {
		return label, 0
	}
	return title, year
}
