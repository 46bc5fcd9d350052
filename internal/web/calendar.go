package web

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"predicacal/internal/capture"
	appLog "predicacal/internal/log"
	"predicacal/internal/pdfcal"
)

//go:embed templates/calendar.html
var calendarHTML string

var calendarTmpl = template.Must(template.New("calendar").Parse(calendarHTML))

type viewEvent struct {
	Time      string
	Title     string
	Conductor string
	Location  string
	URL       string
	Territory string
}

type viewCell struct {
	Day    int // 0 for padding cells outside the month
	Color  template.CSS
	Events []viewEvent
}

type viewLegend struct {
	Tag   string
	Color template.CSS
}

type calendarView struct {
	Lang  string
	Title string

	Year, Month         int
	PrevYear, PrevMonth int
	NextYear, NextMonth int

	Weekdays    []string
	Weeks       [][7]viewCell
	Legend      []viewLegend
	LegendTitle string

	ConductorLabel string
	LocationLabel  string
	TerritoryLabel string
}

// buildView lays the month out exactly like the PDF grid: Monday first,
// same cell colours, same per-day event order.
func (s *Server) buildView(ctx context.Context, year int, month time.Month) (calendarView, error) {
	res, err := s.svc.MonthEvents(ctx, year, month)
	if err != nil {
		return calendarView{}, err
	}
	st := s.svc.Style()
	g, err := pdfcal.ComputeGrid(year, month, st.Dims)
	if err != nil {
		return calendarView{}, err
	}
	buckets := pdfcal.BucketEvents(g.Dates(), res.Events)

	loc := st.Locale
	prev := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	next := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	v := calendarView{
		Lang:           lang(s.cfg.Style.Locale),
		Title:          loc.Title + " " + loc.Months[month-1] + " " + strconv.Itoa(year),
		Year:           year,
		Month:          int(month),
		PrevYear:       prev.Year(),
		PrevMonth:      int(prev.Month()),
		NextYear:       next.Year(),
		NextMonth:      int(next.Month()),
		Weekdays:       loc.Weekdays[:],
		Weeks:          make([][7]viewCell, g.Rows-1),
		LegendTitle:    loc.LegendTitle,
		ConductorLabel: loc.ConductorLabel,
		LocationLabel:  loc.LocationLabel,
		TerritoryLabel: loc.TerritoryLabel,
	}
	for _, tc := range st.Legend {
		v.Legend = append(v.Legend, viewLegend{Tag: tc.Tag, Color: template.CSS(tc.Color.Hex())})
	}

	for i := 0; i < g.Days; i++ {
		cell := g.Cell(i)
		events := buckets[cell.Date]
		vc := viewCell{
			Day:   cell.Date.Day(),
			Color: template.CSS(st.CellColor(i, events).Hex()),
		}
		for _, ev := range events {
			vc.Events = append(vc.Events, viewEvent{
				Time:      ev.StartTime.Format("15:04"),
				Title:     ev.Title,
				Conductor: ev.ConductorName,
				Location:  ev.LocationName,
				URL:       ev.URL,
				Territory: ev.TerritoryNumber,
			})
		}
		v.Weeks[cell.Row-1][cell.Col] = vc
	}
	return v, nil
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	year, month, err := s.yearMonth(r)
	if err != nil {
		writeAppError(w, err, "invalid request")
		return
	}
	v, err := s.buildView(r.Context(), year, month)
	if err != nil {
		writeAppError(w, err, "failed to build calendar view")
		return
	}

	var buf bytes.Buffer
	if err := calendarTmpl.Execute(&buf, v); err != nil {
		appLog.Error("calendar template failed", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handlePreview screenshots this server's own /calendar page.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	year, month, err := s.yearMonth(r)
	if err != nil {
		writeAppError(w, err, "invalid request")
		return
	}

	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(int(month)))
	opts := capture.Options{
		URL:     "http://" + loopbackAddr(s.cfg.Listen) + "/calendar?" + q.Encode(),
		Width:   s.cfg.Preview.Width,
		Height:  s.cfg.Preview.Height,
		Timeout: time.Duration(s.cfg.Preview.TimeoutSeconds) * time.Second,
	}
	if s.basicAuthEnabled() {
		cred := s.cfg.BasicAuth.Username + ":" + s.cfg.BasicAuth.Password
		opts.Headers = map[string]string{
			"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(cred)),
		}
	}

	png, err := s.capturer.CapturePNG(r.Context(), opts)
	if err != nil {
		writeAppError(w, err, "failed to capture preview")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// loopbackAddr turns a listen address such as ":8080" or "0.0.0.0:8080"
// into one the local browser can dial.
func loopbackAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func lang(locale string) string {
	if locale == "" {
		return "es"
	}
	return locale
}
