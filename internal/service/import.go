package service

import (
	"context"

	"predicacal/internal/ics"
	appLog "predicacal/internal/log"
	"predicacal/internal/model"
	"predicacal/internal/schedule"
)

// ImportResult counts what an import did.
type ImportResult struct {
	Created int `json:"created"`
}

// Import stores every VEVENT of an ICS document as an event record. Place
// names are kept as display text; imported events reference no stored
// location, conductor or territory.
//
// Imports are not atomic: when the store fails partway, the records already
// written stay and the returned result counts them alongside the error.
func (s *Service) Import(ctx context.Context, body []byte, source string) (ImportResult, error) {
	evs, err := ics.Parse(body, ics.ParseOptions{
		Location:      s.loc,
		SummaryPrefix: s.icsOpts.SummaryPrefix,
		Source:        source,
	})
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	for _, ev := range evs {
		rec := model.EventRecord{
			Title:        ev.Title,
			StartTime:    ev.Start,
			LocationName: ev.Location,
			URL:          ev.URL,
			Recurrence:   ev.Recurrence,
			CreatedAt:    s.now().UTC(),
		}
		if rec.Recurrence != "" {
			if err := schedule.ValidateRecurrence(rec.Recurrence); err != nil {
				appLog.Warn("dropping unsupported recurrence", "uid", ev.UID, "recurrence", ev.Recurrence)
				rec.Recurrence = ""
			}
		}
		if _, err := s.store.CreateEvent(ctx, rec); err != nil {
			appLog.Error("ics import stopped", err, "source", source, "created", res.Created, "total", len(evs))
			return res, err
		}
		res.Created++
	}

	appLog.Info("ics import completed", "source", source, "created", res.Created)
	return res, nil
}

// ImportURL downloads a calendar and imports it.
func (s *Service) ImportURL(ctx context.Context, url string) (ImportResult, error) {
	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return ImportResult{}, err
	}
	return s.Import(ctx, body, "url")
}
