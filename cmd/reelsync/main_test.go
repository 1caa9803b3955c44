package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"reelsync/internal/api"
	"reelsync/internal/catalog"
	"reelsync/internal/identification"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "tmdb.api_key not set")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, target); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[sync]\nmode = \"sideways\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"stats"}, env.configPath); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestTitlesListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	ids := env.seed(t,
		catalog.Entry{
			Title:         "Kaadhal",
			Year:          2023,
			Metadata:      catalog.Metadata{IMDBID: "tt1111111", Rating: 7.5, Genres: []string{"Drama"}},
			StreamURL:     "https://example.com/kaadhal.m3u8",
			StreamLabel:   "Tamilan24 - HD",
			StreamQuality: "HD",
		},
		catalog.Entry{Title: "Vaa", Year: 2021},
	)

	out, _, err := runCLI(t, []string{"titles", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("titles list: %v", err)
	}
	requireContains(t, out, "Kaadhal")
	requireContains(t, out, "Vaa")
	requireContains(t, out, "tt1111111")

	out, _, err = runCLI(t, []string{"titles", "list", "--linked", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("titles list --json: %v", err)
	}
	var resp api.TitleListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(resp.Items) != 1 || resp.Items[0].Title != "Kaadhal" {
		t.Fatalf("unexpected linked titles %+v", resp.Items)
	}

	out, _, err = runCLI(t, []string{"titles", "list", "--search", "vA"}, env.configPath)
	if err != nil {
		t.Fatalf("titles list --search: %v", err)
	}
	if strings.Contains(out, "Kaadhal") {
		t.Fatalf("search should exclude Kaadhal: %s", out)
	}

	out, _, err = runCLI(t, []string{"titles", "show", strconv.FormatInt(ids[0], 10)}, env.configPath)
	if err != nil {
		t.Fatalf("titles show: %v", err)
	}
	requireContains(t, out, "Tamilan24 - HD")
	requireContains(t, out, "https://example.com/kaadhal.m3u8")

	if _, _, err := runCLI(t, []string{"titles", "show", "999"}, env.configPath); err == nil {
		t.Fatal("expected error for missing title")
	}
	if _, _, err := runCLI(t, []string{"titles", "show", "abc"}, env.configPath); err == nil {
		t.Fatal("expected error for invalid id")
	}
}

func TestStreamsAndRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	ids := env.seed(t, catalog.Entry{
		Title:       "Kaadhal",
		Year:        2023,
		StreamURL:   "https://example.com/kaadhal.m3u8",
		StreamLabel: "Tamilan24 - HD",
	})
	id := strconv.FormatInt(ids[0], 10)

	out, _, err := runCLI(t, []string{"streams", id, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("streams: %v", err)
	}
	var streams []api.Stream
	if err := json.Unmarshal([]byte(out), &streams); err != nil {
		t.Fatalf("decode streams: %v", err)
	}
	if len(streams) != 1 || streams[0].Label != "Tamilan24 - HD" {
		t.Fatalf("unexpected streams %+v", streams)
	}

	out, _, err = runCLI(t, []string{"titles", "remove", id}, env.configPath)
	if err != nil {
		t.Fatalf("titles remove: %v", err)
	}
	requireContains(t, out, "Removed title")

	out, _, err = runCLI(t, []string{"stats", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var stats api.CatalogStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Titles != 0 || stats.Streams != 0 {
		t.Fatalf("expected empty catalog after remove, got %+v", stats)
	}

	if _, _, err := runCLI(t, []string{"titles", "remove", id}, env.configPath); err == nil {
		t.Fatal("expected error removing missing title")
	}
}

func newTMDBServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/find/tt1111111":
			_, _ = w.Write([]byte(`{"movie_results":[{"id":42,"title":"Kaadhal"}]}`))
		case strings.HasPrefix(r.URL.Path, "/find/"):
			_, _ = w.Write([]byte(`{"movie_results":[]}`))
		case r.URL.Path == "/search/movie" && r.URL.Query().Get("query") == "Kaadhal":
			_, _ = w.Write([]byte(`{"results":[{"id":42,"title":"Kaadhal","original_language":"ta","release_date":"2023-02-14","popularity":12}]}`))
		case r.URL.Path == "/search/movie":
			_, _ = w.Write([]byte(`{"results":[]}`))
		case r.URL.Path == "/movie/42":
			_, _ = w.Write([]byte(`{"id":42,"title":"Kaadhal","original_language":"ta","release_date":"2023-02-14","overview":"Canonical synopsis","runtime":140,"vote_average":7.5,"genres":[{"id":18,"name":"Drama"}],"external_ids":{"imdb_id":"tt1111111"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLinkCommand(t *testing.T) {
	tmdbServer := newTMDBServer(t)
	env := setupCLITestEnv(t, withTMDB(tmdbServer.URL))
	ids := env.seed(t, catalog.Entry{Title: "Kaadhal", Year: 2023})
	id := strconv.FormatInt(ids[0], 10)

	out, _, err := runCLI(t, []string{"link", id, "tt1111111", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	var title api.Title
	if err := json.Unmarshal([]byte(out), &title); err != nil {
		t.Fatalf("decode title: %v", err)
	}
	if !title.Linked || title.TMDBID != 42 || title.Description != "Canonical synopsis" {
		t.Fatalf("unexpected linked title %+v", title)
	}

	if _, _, err := runCLI(t, []string{"link", id, "tt7654321"}, env.configPath); err == nil {
		t.Fatal("expected relinking to a different id to fail")
	}
	_, _, err = runCLI(t, []string{"link", id, "not-an-id"}, env.configPath)
	if !errors.Is(err, identification.ErrInvalidIMDBID) {
		t.Fatalf("expected ErrInvalidIMDBID, got %v", err)
	}
}

func TestLinkRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)
	ids := env.seed(t, catalog.Entry{Title: "Vaa", Year: 2021})
	_, _, err := runCLI(t, []string{"link", strconv.FormatInt(ids[0], 10), "tt1111111"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "tmdb.api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

const cliListing = `<html><body><div class="row">
<div class="col-md-3">
  <a class="thumb" href="/videos/kaadhal"><img src="/posters/kaadhal.jpg"></a>
  <h4><a title="Kaadhal (2023)">Kaadhal (2023)</a></h4>
</div>
<div class="col-md-3">
  <a class="thumb" href="/videos/vaa"><img src="/posters/vaa.jpg"></a>
  <h4><a title="Vaa (2021)">Vaa (2021)</a></h4>
</div>
</div></body></html>`

func newSourceServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/videos/latest":
			if r.URL.Query().Get("page_id") == "1" {
				_, _ = w.Write([]byte(cliListing))
				return
			}
			_, _ = w.Write([]byte(`<html><body></body></html>`))
		case "/videos/kaadhal", "/videos/vaa":
			slug := strings.TrimPrefix(r.URL.Path, "/videos/")
			_, _ = w.Write([]byte(`<html><body><video><source src="/media/` + slug + `.m3u8" data-quality="HD"></video></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSyncCommand(t *testing.T) {
	source := newSourceServer(t)
	tmdbServer := newTMDBServer(t)
	env := setupCLITestEnv(t, withSource(source.URL), withTMDB(tmdbServer.URL))

	out, _, err := runCLI(t, []string{"sync", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	var summary api.SyncSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Mode != "incremental" || summary.Stored != 2 || summary.Linked != 1 || summary.Pages != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	out, _, err = runCLI(t, []string{"titles", "list", "--linked"}, env.configPath)
	if err != nil {
		t.Fatalf("titles list: %v", err)
	}
	requireContains(t, out, "tt1111111")
}

func TestSyncRefusesWhileLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	lock := flock.New(env.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer lock.Unlock() //nolint:errcheck

	_, _, err = runCLI(t, []string{"sync"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "daemon owns") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestSyncRejectsConflictingFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"sync", "--full", "--mode", "incremental"}, env.configPath); err == nil {
		t.Fatal("expected flag conflict error")
	}
}
