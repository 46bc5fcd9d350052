package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"predicacal/internal/apperr"
	appLog "predicacal/internal/log"
)

// ImportedEvent is a VEVENT reduced to the fields an appointment keeps.
type ImportedEvent struct {
	UID         string
	Title       string
	Start       time.Time
	AllDay      bool
	Location    string
	URL         string
	Description string
	// Recurrence is the raw RRULE value, if any.
	Recurrence string
}

// ParseOptions control how VEVENTs are read.
type ParseOptions struct {
	// Location is the zone start times are converted to. Nil means UTC.
	Location *time.Location
	// SummaryPrefix is stripped from titles, so that calendars exported by
	// this service import with their original titles.
	SummaryPrefix string
	// Source names the payload in logs.
	Source string
}

// Parse reads every VEVENT from body. Events without a UID or start time
// are logged and skipped; the rest are returned in document order.
func Parse(body []byte, opts ParseOptions) ([]ImportedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, apperr.New(apperr.CodeInvalidArgument, "empty ICS body")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "source", opts.Source)
		return nil, apperr.Wrap(apperr.CodeInvalidArgument, err, "parse ICS")
	}

	events := make([]ImportedEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve, opts)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "source", opts.Source, "reason", perr.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "source", opts.Source, "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent, opts ParseOptions) (ImportedEvent, error) {
	var out ImportedEvent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = strings.TrimSpace(strings.TrimPrefix(p.Value, opts.SummaryPrefix))
	}
	if out.Title == untitled {
		out.Title = ""
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyUrl); p != nil {
		out.URL = p.Value
	}
	// Google-flavoured exports carry the link in LOCATION.
	if out.URL == "" && strings.HasPrefix(out.Location, "http") {
		out.URL = out.Location
		out.Location = placeFromDescription(out.Description)
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.Recurrence = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, errors.New("missing DTSTART")
	}
	if vs, ok := dtStart.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		out.AllDay = true
	}
	if !strings.Contains(dtStart.Value, "T") {
		out.AllDay = true
	}

	if out.AllDay {
		d, err := time.ParseInLocation("20060102", strings.TrimSpace(dtStart.Value), opts.Location)
		if err != nil {
			return out, err
		}
		out.Start = d
		return out, nil
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	out.Start = start.In(opts.Location)
	return out, nil
}

// placeFromDescription recovers "Lugar: <name>" written by the Google
// flavour. Line breaks may still be escaped.
func placeFromDescription(desc string) string {
	desc = strings.ReplaceAll(desc, `\n`, "\n")
	for _, line := range strings.Split(desc, "\n") {
		if name, ok := strings.CutPrefix(strings.TrimSpace(line), "Lugar: "); ok {
			return name
		}
	}
	return ""
}
