package service

import (
	"context"
	"time"

	"predicacal/internal/cache"
	"predicacal/internal/ics"
	appLog "predicacal/internal/log"
	"predicacal/internal/model"
	"predicacal/internal/pdfcal"
)

// Content types of generated documents.
const (
	ContentTypePDF      = "application/pdf"
	ContentTypeZip      = "application/zip"
	ContentTypeCalendar = "text/calendar; charset=utf-8"
)

// Feed window relative to the current month.
const (
	feedMonthsBack  = 1
	feedMonthsAhead = 6
)

// Document is a generated file ready to be served or written.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
	FromCache   bool
}

// MonthPDF renders the month grid. Results are cached under a hash of the
// month, its events and the style, so edits never serve stale pages.
func (s *Service) MonthPDF(ctx context.Context, year int, month time.Month) (Document, error) {
	res, err := s.MonthEvents(ctx, year, month)
	if err != nil {
		return Document{}, err
	}

	doc := Document{Filename: pdfcal.Filename(year, month), ContentType: ContentTypePDF}

	key, err := cache.Key("pdf", year, int(month), res.Events, s.renderer.Style())
	if err != nil {
		return Document{}, err
	}
	if body, ok := s.cacheGet(ctx, key); ok {
		doc.Body = body
		doc.FromCache = true
		appLog.Info("calendar pdf served", "year", year, "month", int(month), "from_cache", true, "bytes", len(body))
		return doc, nil
	}

	body, err := s.renderer.RenderMonth(year, month, res.Events)
	if err != nil {
		appLog.Error("calendar pdf render failed", err, "year", year, "month", int(month))
		return Document{}, err
	}
	s.cacheSet(ctx, key, body)

	doc.Body = body
	appLog.Info("calendar pdf served",
		"year", year,
		"month", int(month),
		"event_count", len(res.Events),
		"from_cache", false,
		"bytes", len(body),
	)
	return doc, nil
}

// MonthICS bundles the month's events as Apple and Google calendars.
func (s *Service) MonthICS(ctx context.Context, year int, month time.Month) (Document, error) {
	res, err := s.MonthEvents(ctx, year, month)
	if err != nil {
		return Document{}, err
	}
	body, err := ics.Bundle(res.Events, s.icsOpts)
	if err != nil {
		appLog.Error("ics bundle failed", err, "year", year, "month", int(month))
		return Document{}, err
	}
	appLog.Info("ics bundle served", "year", year, "month", int(month), "event_count", len(res.Events))
	return Document{Filename: ics.BundleFilename, ContentType: ContentTypeZip, Body: body}, nil
}

// Feed renders the subscription calendar: from the previous month to six
// months ahead.
func (s *Service) Feed(ctx context.Context) (Document, error) {
	year, month := s.CurrentMonth()
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -feedMonthsBack, 0)

	var events []model.CalendarEvent
	for i := 0; i <= feedMonthsBack+feedMonthsAhead; i++ {
		m := first.AddDate(0, i, 0)
		res, err := s.MonthEvents(ctx, m.Year(), m.Month())
		if err != nil {
			return Document{}, err
		}
		events = append(events, res.Events...)
	}

	body := ics.Feed(events, s.icsOpts)
	appLog.Info("ics feed served", "event_count", len(events))
	return Document{Filename: "predicacal.ics", ContentType: ContentTypeCalendar, Body: []byte(body)}, nil
}

// cacheGet treats cache failures as misses.
func (s *Service) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	body, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		appLog.Warn("cache get failed", "key", key, "err", err)
		return nil, false
	}
	return body, ok
}

func (s *Service) cacheSet(ctx context.Context, key string, body []byte) {
	if err := s.cache.Set(ctx, key, body, s.cacheTTL); err != nil {
		appLog.Warn("cache set failed", "key", key, "err", err)
	}
}
