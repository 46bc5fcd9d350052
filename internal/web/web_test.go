package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"predicacal/internal/apperr"
	"predicacal/internal/capture"
	"predicacal/internal/config"
	"predicacal/internal/model"
	"predicacal/internal/service"
	"predicacal/internal/store"
)

type fakeCapturer struct {
	opts capture.Options
	err  error
}

func (f *fakeCapturer) CapturePNG(_ context.Context, opts capture.Options) ([]byte, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return []byte("\x89PNG fake"), nil
}

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *fakeCapturer) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Timezone = "UTC"
	svc, err := service.New(cfg, service.Deps{Store: store.NewMemoryStore()})
	if err != nil {
		t.Fatal(err)
	}
	fc := &fakeCapturer{}
	srv := httptest.NewServer(NewServer(cfg, svc, fc).Handler())
	t.Cleanup(srv.Close)
	return srv, fc
}

func postJSON(t *testing.T, u string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(u, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestHealthAndBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	srv, _ := newTestServer(t, cfg)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/events")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized || resp.Header.Get("WWW-Authenticate") == "" {
		t.Errorf("unauthenticated status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/events", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("authenticated status = %d", resp.StatusCode)
	}
}

func TestCatalogAndEventCRUD(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	api := srv.URL + "/api"

	resp := postJSON(t, api+"/locations", `{"name":"Room A","url":"https://maps.example.com/a"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create location status = %d", resp.StatusCode)
	}
	loc := decode[model.Location](t, resp)

	resp = postJSON(t, api+"/conductors", `{"name":"Alice"}`)
	con := decode[model.Conductor](t, resp)

	// Territories also accept a plain form post.
	resp, err := http.PostForm(api+"/territories", url.Values{"number": {"7"}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create territory status = %d", resp.StatusCode)
	}
	ter := decode[model.Territory](t, resp)

	resp, err = http.PostForm(api+"/territories", url.Values{"number": {"seven"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad territory status = %d", resp.StatusCode)
	}

	resp, err = http.PostForm(api+"/events", url.Values{
		"title":            {"Team Sync"},
		"start_time":       {"2024-07-15T09:00"},
		"location_id":      {loc.ID},
		"conductor_id":     {con.ID},
		"territories_list": {ter.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create event status = %d", resp.StatusCode)
	}
	rec := decode[model.EventRecord](t, resp)
	if rec.LocationName != "Room A" || rec.ConductorName != "Alice" || rec.TerritoryNumber != "7" {
		t.Errorf("event = %+v", rec)
	}

	resp = postJSON(t, api+"/events", `{"title":"x","start_time":"someday"}`)
	errBody := decode[map[string]string](t, resp)
	if resp.StatusCode != http.StatusBadRequest || errBody["error"] == "" {
		t.Errorf("bad event status = %d body = %v", resp.StatusCode, errBody)
	}

	resp, err = http.Get(api + "/events")
	if err != nil {
		t.Fatal(err)
	}
	if evs := decode[[]model.EventRecord](t, resp); len(evs) != 1 {
		t.Errorf("events = %d", len(evs))
	}

	req, _ := http.NewRequest(http.MethodDelete, api+"/events/"+rec.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d", resp.StatusCode)
	}
}

func TestCalendarPDF(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/calendar.pdf?year=2024&month=7")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="calendario_2024-07.pdf"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(string(body), "%PDF-") {
		t.Error("body is not a PDF")
	}
	if resp.Header.Get("X-Cache") != "MISS" {
		t.Errorf("X-Cache = %q", resp.Header.Get("X-Cache"))
	}

	for _, q := range []string{"year=2024&month=13", "year=2024&month=x"} {
		resp, err := http.Get(srv.URL + "/api/calendar.pdf?" + q)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d", q, resp.StatusCode)
		}
	}
}

func TestExportAndImportICS(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp := postJSON(t, srv.URL+"/api/events", `{"title":"Team Sync","start_time":"2024-07-15T09:00"}`)
	resp.Body.Close()

	resp, err := http.PostForm(srv.URL+"/api/export/ics", url.Values{"year": {"2024"}, "month": {"7"}})
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.Header.Get("Content-Type") != "application/zip" || !strings.HasPrefix(string(body), "PK") {
		t.Errorf("export: %s %q", resp.Header.Get("Content-Type"), resp.Header.Get("Content-Disposition"))
	}

	const cal = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:abc@test\r\nDTSTART:20240720T100000Z\r\nSUMMARY:Imported\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	resp, err = http.Post(srv.URL+"/api/import/ics", "text/calendar", strings.NewReader(cal))
	if err != nil {
		t.Fatal(err)
	}
	res := decode[service.ImportResult](t, resp)
	if resp.StatusCode != http.StatusOK || res.Created != 1 {
		t.Errorf("import status = %d created = %d", resp.StatusCode, res.Created)
	}

	resp, err = http.Post(srv.URL+"/api/import/ics", "text/calendar", strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad import status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/feed.ics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if !strings.HasPrefix(resp.Header.Get("Content-Disposition"), "inline") {
		t.Errorf("feed disposition = %q", resp.Header.Get("Content-Disposition"))
	}
}

type failingStore struct {
	*store.MemoryStore
	left int
}

func (f *failingStore) CreateEvent(ctx context.Context, e model.EventRecord) (model.EventRecord, error) {
	if f.left == 0 {
		return model.EventRecord{}, apperr.New(apperr.CodeUnavailable, "disk full")
	}
	f.left--
	return f.MemoryStore.CreateEvent(ctx, e)
}

func TestImportFailureReportsCreated(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	svc, err := service.New(cfg, service.Deps{Store: &failingStore{MemoryStore: store.NewMemoryStore(), left: 1}})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewServer(cfg, svc, &fakeCapturer{}).Handler())
	defer srv.Close()

	const cal = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:a@test\r\nDTSTART:20240715T090000Z\r\nSUMMARY:Uno\r\nEND:VEVENT\r\n" +
		"BEGIN:VEVENT\r\nUID:b@test\r\nDTSTART:20240716T090000Z\r\nSUMMARY:Dos\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	resp, err := http.Post(srv.URL+"/api/import/ics", "text/calendar", strings.NewReader(cal))
	if err != nil {
		t.Fatal(err)
	}
	body := decode[struct {
		Error   string `json:"error"`
		Created int    `json:"created"`
	}](t, resp)
	if resp.StatusCode != http.StatusServiceUnavailable || body.Created != 1 || body.Error == "" {
		t.Errorf("status = %d body = %+v", resp.StatusCode, body)
	}
}

func TestCalendarView(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp := postJSON(t, srv.URL+"/api/events", `{"title":"Team <Sync>","start_time":"2024-07-15T09:00"}`)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/calendar?year=2024&month=7")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	html := string(body)

	for _, want := range []string{
		`data-ready="true"`,
		"Calendario Julio 2024",
		"09:00 - Team &lt;Sync&gt;",
		"Miércoles",
		"?year=2024&month=6",
		"?year=2024&month=8",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page is missing %q", want)
		}
	}
}

func TestPreview(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Listen = "0.0.0.0:9090"
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	srv, fc := newTestServer(t, cfg)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/preview.png?year=2024&month=7", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("status = %d type = %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	if fc.opts.URL != "http://127.0.0.1:9090/calendar?month=7&year=2024" {
		t.Errorf("URL = %q", fc.opts.URL)
	}
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	if fc.opts.Headers["Authorization"] != want {
		t.Errorf("Authorization = %q", fc.opts.Headers["Authorization"])
	}

	fc.err = errors.New("chrome not installed")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("failed capture status = %d", resp.StatusCode)
	}
}

func TestLoopbackAddr(t *testing.T) {
	for in, want := range map[string]string{
		":8080":          "127.0.0.1:8080",
		"0.0.0.0:8080":   "127.0.0.1:8080",
		"[::]:8080":      "127.0.0.1:8080",
		"10.0.0.5:8080":  "10.0.0.5:8080",
		"localhost:8080": "localhost:8080",
	} {
		if got := loopbackAddr(in); got != want {
			t.Errorf("loopbackAddr(%q) = %q, want %q", in, got, want)
		}
	}
}
