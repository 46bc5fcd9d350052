package ics

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"predicacal/internal/apperr"
	"predicacal/internal/config"
	"predicacal/internal/model"
)

var laPaz = time.FixedZone("BOT", -4*3600)

func testOptions() Options {
	o := OptionsFromConfig(config.DefaultConfig().ICS, "America/La_Paz")
	o.Now = func() time.Time { return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC) }
	return o
}

func sampleEvents() []model.CalendarEvent {
	return []model.CalendarEvent{
		{
			RecordID:        "ev-1",
			Title:           "Team Sync",
			StartTime:       time.Date(2024, 7, 15, 9, 0, 0, 0, laPaz),
			ConductorName:   "Alice",
			LocationName:    "Room A",
			URL:             "https://maps.example.com/room-a",
			TerritoryNumber: "12",
		},
		{RecordID: "ev-2", StartTime: time.Date(2024, 7, 16, 18, 30, 0, 0, laPaz), URL: "N/A"},
		{RecordID: "broken", Title: "No start"},
	}
}

func parseBack(t *testing.T, body string) []ImportedEvent {
	t.Helper()
	evs, err := Parse([]byte(body), ParseOptions{Location: laPaz, SummaryPrefix: testOptions().SummaryPrefix})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return evs
}

func TestSummaryAndUID(t *testing.T) {
	ev := sampleEvents()[0]
	if got := Summary(ev, "Predicación - "); got != "Predicación - Team Sync" {
		t.Errorf("Summary = %q", got)
	}
	if got := Summary(model.CalendarEvent{Title: "  "}, "P - "); got != "P - Sin título" {
		t.Errorf("untitled Summary = %q", got)
	}

	if UID(ev) != UID(ev) {
		t.Error("UID must be stable")
	}
	other := ev
	other.StartTime = other.StartTime.AddDate(0, 0, 7)
	if UID(ev) == UID(other) {
		t.Error("occurrences of one record need distinct UIDs")
	}
	if want := "ev-1-20240715T130000Z@predicacal"; UID(ev) != want {
		t.Errorf("UID = %q, want %q", UID(ev), want)
	}
}

func TestExportApple(t *testing.T) {
	out := Export(sampleEvents(), FlavorApple, testOptions())

	if n := strings.Count(out, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("VEVENT count = %d, want 2 (event without start dropped)", n)
	}
	if !strings.Contains(out, "X-WR-CALNAME:Predicación") || !strings.Contains(out, "X-WR-TIMEZONE:America/La_Paz") {
		t.Errorf("calendar header missing:\n%s", out)
	}

	evs := parseBack(t, out)
	if len(evs) != 2 {
		t.Fatalf("parsed %d events", len(evs))
	}
	first := evs[0]
	if first.Title != "Team Sync" || first.Location != "Room A" || first.URL != "https://maps.example.com/room-a" {
		t.Errorf("apple event = %+v", first)
	}
	if !first.Start.Equal(sampleEvents()[0].StartTime) {
		t.Errorf("start = %v", first.Start)
	}
	if !strings.Contains(first.Description, "Conductor: Alice") || strings.Contains(first.Description, "Lugar") {
		t.Errorf("apple description = %q", first.Description)
	}

	second := evs[1]
	if second.Title != "" || second.URL != "" {
		t.Errorf("untitled event with non-http url = %+v", second)
	}
}

func TestExportGoogle(t *testing.T) {
	evs := parseBack(t, Export(sampleEvents(), FlavorGoogle, testOptions()))
	if len(evs) != 2 {
		t.Fatalf("parsed %d events", len(evs))
	}
	first := evs[0]
	if first.URL != "https://maps.example.com/room-a" || first.Location != "Room A" {
		t.Errorf("google event = %+v", first)
	}
	if !strings.Contains(first.Description, "Lugar: Room A") || !strings.Contains(first.Description, "Territorio: 12") {
		t.Errorf("google description = %q", first.Description)
	}
}

func TestExportDuration(t *testing.T) {
	opts := testOptions()
	out := Export(sampleEvents()[:1], FlavorApple, opts)
	if !strings.Contains(out, "DTSTART:20240715T130000Z") || !strings.Contains(out, "DTEND:20240715T150000Z") {
		t.Errorf("want a two hour event in UTC:\n%s", out)
	}
}

func TestFeed(t *testing.T) {
	out := Feed(sampleEvents(), testOptions())
	for _, want := range []string{"METHOD:PUBLISH", "X-PUBLISHED-TTL:PT1H", "BEGIN:VEVENT"} {
		if !strings.Contains(out, want) {
			t.Errorf("feed missing %q", want)
		}
	}
}

func TestBundle(t *testing.T) {
	data, err := Bundle(sampleEvents(), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != AppleFilename || zr.File[1].Name != GoogleFilename {
		t.Fatalf("archive entries = %v", zr.File)
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		if !strings.HasPrefix(string(body), "BEGIN:VCALENDAR") {
			t.Errorf("%s is not a calendar", f.Name)
		}
	}
}

const importSample = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:one@test\r\n" +
	"DTSTAMP:20240701T000000Z\r\n" +
	"DTSTART:20240706T130000Z\r\n" +
	"SUMMARY:Salida sabatina\r\n" +
	"LOCATION:Salón\r\n" +
	"RRULE:FREQ=WEEKLY;BYDAY=SA\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20240701T000000Z\r\n" +
	"DTSTART:20240707T130000Z\r\n" +
	"SUMMARY:No UID\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:allday@test\r\n" +
	"DTSTAMP:20240701T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20240720\r\n" +
	"SUMMARY:Asamblea\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:nostart@test\r\n" +
	"DTSTAMP:20240701T000000Z\r\n" +
	"SUMMARY:Sin fecha\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParse(t *testing.T) {
	evs, err := Parse([]byte(importSample), ParseOptions{Location: laPaz, Source: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 {
		t.Fatalf("parsed %d events, want 2: %+v", len(evs), evs)
	}

	weekly := evs[0]
	if weekly.UID != "one@test" || weekly.Title != "Salida sabatina" || weekly.Location != "Salón" {
		t.Errorf("weekly = %+v", weekly)
	}
	if weekly.Recurrence != "FREQ=WEEKLY;BYDAY=SA" {
		t.Errorf("Recurrence = %q", weekly.Recurrence)
	}
	if weekly.Start.Hour() != 9 || weekly.Start.Location() != laPaz {
		t.Errorf("start not converted to local zone: %v", weekly.Start)
	}

	allDay := evs[1]
	if !allDay.AllDay || !allDay.Start.Equal(time.Date(2024, 7, 20, 0, 0, 0, 0, laPaz)) {
		t.Errorf("all-day = %+v", allDay)
	}

	if _, err := Parse(nil, ParseOptions{}); !apperr.Is(err, apperr.CodeInvalidArgument) {
		t.Errorf("empty body err = %v", err)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/private/token.ics" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = io.WriteString(w, importSample)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	body, err := f.Fetch(context.Background(), srv.URL+"/private/token.ics")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != importSample {
		t.Error("body mismatch")
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.ics"); !apperr.Is(err, apperr.CodeUnavailable) {
		t.Errorf("404 err = %v", err)
	}
	if _, err := f.Fetch(context.Background(), "ftp://example.com/cal.ics"); !apperr.Is(err, apperr.CodeInvalidArgument) {
		t.Errorf("ftp err = %v", err)
	}
}

func TestNormalizeAndRedactURL(t *testing.T) {
	got, err := normalizeURL("webcal://example.com/feed.ics")
	if err != nil || got != "https://example.com/feed.ics" {
		t.Errorf("webcal = %q, %v", got, err)
	}
	if r := redactURL("https://example.com/path/secret.ics?token=abcd"); r != "https://example.com/...(redacted)" {
		t.Errorf("redactURL = %q", r)
	}
	if r := redactURL("not a url"); r != "ics://...(redacted)" {
		t.Errorf("redactURL = %q", r)
	}
}
