package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/metrics"
)

const defaultQuality = "HD"

// Details is the media information scraped from a title's detail page.
type Details struct {
	StreamURL   string
	Quality     string
	Description string
	Genre       string
	Poster      string
}

// DetailResolver turns detail page URLs into Details.
type DetailResolver struct {
	fetcher
	referer string
	session *Session
	logger  *slog.Logger
}

// NewDetailResolver builds a resolver sharing the given session.
func NewDetailResolver(cfg *config.Config, session *Session, logger *slog.Logger, opts ...Option) *DetailResolver {
	o := buildOptions(cfg, opts)
	return &DetailResolver{
		fetcher: fetcher{
			client:    o.httpClient,
			userAgent: cfg.Source.UserAgent,
			policy:    *o.policy,
		},
		referer: cfg.Source.BaseURL + "/",
		session: session,
		logger:  logging.NewComponentLogger(logger, "detail"),
	}
}

// Resolve fetches detailURL and extracts its stream. A nil result with a nil
// error means the title has no usable media; the only error returned is
// context cancellation.
//
// A page without a stream triggers one re-login followed by exactly one more
// fetch. If the login fails the title is skipped.
func (r *DetailResolver) Resolve(ctx context.Context, detailURL string) (*Details, error) {
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldURL, detailURL))

	details, err := r.fetch(ctx, detailURL)
	if errors.Is(err, ErrContentAbsent) {
		metrics.DetailFetches.WithLabelValues("reauth").Inc()
		logger.Info("stream missing, renewing session", logging.String(logging.FieldEventType, "detail_reauth"))
		if r.session == nil || !r.session.Login(ctx) {
			logging.WarnWithContext(logger, "detail skipped after failed re-login", "detail_reauth_failed",
				logging.String(logging.FieldImpact, "title skipped for this run"),
			)
			return nil, nil
		}
		details, err = r.fetch(ctx, detailURL)
	}

	switch {
	case err == nil:
		metrics.DetailFetches.WithLabelValues("ok").Inc()
		return details, nil
	case errors.Is(err, ErrContentAbsent):
		metrics.DetailFetches.WithLabelValues("absent").Inc()
		logger.Info("detail page has no stream", logging.String(logging.FieldEventType, "detail_absent"))
		return nil, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		metrics.DetailFetches.WithLabelValues("error").Inc()
		attrs := []logging.Attr{
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check source availability"),
			logging.String(logging.FieldImpact, "title skipped for this run"),
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			attrs = append(attrs, logging.Int(logging.FieldStatus, statusErr.StatusCode))
		}
		logging.WarnWithContext(logger, "detail fetch failed", "detail_fetch_failed", attrs...)
		return nil, nil
	}
}

func (r *DetailResolver) fetch(ctx context.Context, detailURL string) (*Details, error) {
	header := http.Header{}
	header.Set("Referer", r.referer)
	if r.session != nil {
		if credential := r.session.Credential(); credential != "" {
			header.Set("Cookie", credential)
		}
	}
	doc, err := r.document(ctx, detailURL, header)
	if err != nil {
		return nil, fmt.Errorf("fetch detail: %w", err)
	}
	base, _ := url.Parse(detailURL)
	details := parseDetails(doc, base)
	if details.StreamURL == "" {
		return nil, ErrContentAbsent
	}
	return details, nil
}

func parseDetails(doc *goquery.Document, base *url.URL) *Details {
	details := &Details{}
	source := doc.Find("video source").First()
	if src, ok := source.Attr("src"); ok {
		details.StreamURL = resolveURL(base, src)
	}
	details.Quality = strings.TrimSpace(source.AttrOr("data-quality", ""))
	if details.Quality == "" {
		details.Quality = defaultQuality
	}
	details.Description = strings.Join(strings.Fields(doc.Find(".tag_video_title").First().Text()), " ")
	details.Genre = parseGenre(doc)
	if poster, ok := doc.Find("video[poster]").First().Attr("poster"); ok {
		details.Poster = resolveURL(base, poster)
	}
	return details
}

func parseGenre(doc *goquery.Document) string {
	if text := strings.TrimSpace(doc.Find(".video-genre").First().Text()); text != "" {
		return strings.Join(strings.Fields(text), " ")
	}
	var genres []string
	doc.Find(`meta[itemprop="genre"]`).Each(func(_ int, meta *goquery.Selection) {
		if value := strings.TrimSpace(meta.AttrOr("content", "")); value != "" {
			genres = append(genres, value)
		}
	})
	return strings.Join(genres, ", ")
}
