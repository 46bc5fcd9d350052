// Package ics converts calendar events to and from iCalendar.
//
// Two export flavours exist because Apple Calendar and Google Calendar
// treat LOCATION differently: Apple shows the place name and keeps the map
// link in URL, while Google turns LOCATION into a map link, so the Google
// flavour puts the URL there and moves the place name into DESCRIPTION.
package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"predicacal/internal/config"
	"predicacal/internal/model"
)

// Flavor selects how an event's place and link are encoded.
type Flavor int

const (
	FlavorApple Flavor = iota
	FlavorGoogle
)

func (f Flavor) String() string {
	if f == FlavorGoogle {
		return "google"
	}
	return "apple"
}

const untitled = "Sin título"

// Options tune exported calendars.
type Options struct {
	ProductID     string
	SummaryPrefix string
	CalendarName  string
	// Timezone is advertised as X-WR-TIMEZONE; event times are written in
	// UTC regardless.
	Timezone string
	// Duration is the length given to every event.
	Duration time.Duration
	// Now stamps DTSTAMP; nil means time.Now.
	Now func() time.Time
}

// OptionsFromConfig builds Options from the ics config section.
func OptionsFromConfig(c config.ICSConfig, timezone string) Options {
	return Options{
		ProductID:     c.ProductID,
		SummaryPrefix: c.SummaryPrefix,
		CalendarName:  c.CalendarName,
		Timezone:      timezone,
		Duration:      time.Duration(c.DurationMinutes) * time.Minute,
	}
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) duration() time.Duration {
	if o.Duration <= 0 {
		return 2 * time.Hour
	}
	return o.Duration
}

func (o Options) newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	if o.ProductID != "" {
		cal.SetProductId(o.ProductID)
	}
	cal.SetCalscale("GREGORIAN")
	if o.CalendarName != "" {
		cal.SetXWRCalName(o.CalendarName)
	}
	if o.Timezone != "" {
		cal.SetXWRTimezone(o.Timezone)
	}
	return cal
}

// Export renders events as one calendar in the given flavour. Events
// without a start time are left out.
func Export(events []model.CalendarEvent, flavor Flavor, opts Options) string {
	cal := opts.newCalendar()
	addEvents(cal, events, flavor, opts)
	return cal.Serialize()
}

func addEvents(cal *ical.Calendar, events []model.CalendarEvent, flavor Flavor, opts Options) {
	stamp := opts.now().UTC()
	for _, ev := range events {
		if ev.StartTime.IsZero() {
			continue
		}

		ve := cal.AddEvent(UID(ev))
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(ev.StartTime)
		ve.SetEndAt(ev.StartTime.Add(opts.duration()))
		ve.SetSummary(Summary(ev, opts.SummaryPrefix))

		link := ""
		if strings.HasPrefix(ev.URL, "http") {
			link = ev.URL
		}

		var desc []string
		switch flavor {
		case FlavorGoogle:
			if link != "" {
				ve.SetLocation(link)
			}
			if ev.LocationName != "" {
				desc = append(desc, "Lugar: "+ev.LocationName)
			}
		default:
			if ev.LocationName != "" {
				ve.SetLocation(ev.LocationName)
			}
			if link != "" {
				ve.SetURL(link)
			}
		}
		if ev.ConductorName != "" {
			desc = append(desc, "Conductor: "+ev.ConductorName)
		}
		if ev.TerritoryNumber != "" {
			desc = append(desc, "Territorio: "+ev.TerritoryNumber)
		}
		if len(desc) > 0 {
			ve.SetDescription(strings.Join(desc, "\n"))
		}
	}
}

// Summary is the event title as shown by calendar apps.
func Summary(ev model.CalendarEvent, prefix string) string {
	title := strings.TrimSpace(ev.Title)
	if title == "" {
		title = untitled
	}
	return prefix + title
}

// UID identifies one occurrence. It is stable across exports so that
// re-importing a calendar updates events instead of duplicating them.
func UID(ev model.CalendarEvent) string {
	id := ev.RecordID
	if id == "" {
		sum := sha256.Sum256([]byte(ev.Title))
		id = hex.EncodeToString(sum[:8])
	}
	return fmt.Sprintf("%s-%s@predicacal", id, ev.StartTime.UTC().Format("20060102T150405Z"))
}
