package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"reelsync/internal/api"
	"reelsync/internal/catalog"
	"reelsync/internal/testsupport"
)

func newTestAPIServer(t *testing.T) (*apiServer, *Daemon, *catalog.Store) {
	t.Helper()
	cfg := testConfig(t)
	d, store := newTestDaemon(t, cfg, newFakeRunner())
	return &apiServer{daemon: d, catalogSvc: api.NewCatalogService(store)}, d, store
}

func serve(srv *apiServer, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)
	return w
}

func TestAPIServerHandleTitles(t *testing.T) {
	srv, _, store := newTestAPIServer(t)
	testsupport.MustUpsert(t, store, catalog.Entry{
		Title:     "Kaadhal",
		Year:      2023,
		Metadata:  catalog.Metadata{IMDBID: "tt1111111"},
		StreamURL: "https://example.com/kaadhal.m3u8",
	})
	testsupport.MustUpsert(t, store, catalog.Entry{Title: "Vaa", Year: 2021})

	w := serve(srv, http.MethodGet, "/api/titles?linked=true")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.TitleListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].IMDBID != "tt1111111" {
		t.Fatalf("unexpected items %+v", resp.Items)
	}

	w = serve(srv, http.MethodGet, "/api/titles?search=va")
	resp = api.TitleListResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Title != "Vaa" {
		t.Fatalf("unexpected search items %+v", resp.Items)
	}
}

func TestAPIServerHandleTitle(t *testing.T) {
	srv, _, store := newTestAPIServer(t)
	id := testsupport.MustUpsert(t, store, catalog.Entry{
		Title:       "Kaadhal",
		Year:        2023,
		StreamURL:   "https://example.com/kaadhal.m3u8",
		StreamLabel: "Tamilan24 - HD",
	})

	w := serve(srv, http.MethodGet, "/api/titles/"+strconv.FormatInt(id, 10))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var detail api.TitleDetail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if detail.Title.ID != id || len(detail.Streams) != 1 || detail.Streams[0].Label != "Tamilan24 - HD" {
		t.Fatalf("unexpected detail %+v", detail)
	}

	if w := serve(srv, http.MethodGet, "/api/titles/999"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing title, got %d", w.Code)
	}
	if w := serve(srv, http.MethodGet, "/api/titles/abc"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", w.Code)
	}
}

func TestAPIServerSyncRequiresRunningDaemon(t *testing.T) {
	srv, _, _ := newTestAPIServer(t)
	if w := serve(srv, http.MethodPost, "/api/sync"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if w := serve(srv, http.MethodGet, "/api/sync"); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestAPIServerStatus(t *testing.T) {
	srv, d, _ := newTestAPIServer(t)
	w := serve(srv, http.MethodGet, "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Running || status.Schedule != d.cfg.Sync.Schedule || status.PID == 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestDaemonServesMetricsOnBind(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Bind = "127.0.0.1:0"
	d, _ := newTestDaemon(t, cfg, newFakeRunner())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + d.server.addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "reelsync_") {
		t.Fatalf("unexpected metrics response %d", resp.StatusCode)
	}
}
