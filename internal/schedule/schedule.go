// Package schedule turns stored appointments into displayable calendar
// events: it validates start times, resolves location/conductor/territory
// references when an appointment is created, and expands recurring
// appointments into the occurrences of a month.
package schedule

import (
	"context"
	"strconv"
	"strings"
	"time"

	"predicacal/internal/apperr"
	"predicacal/internal/model"
)

// FormLayout is the layout produced by HTML datetime-local inputs and used
// by legacy string start times.
const FormLayout = "2006-01-02T15:04"

// NotAvailable is stored in place of a display name whose reference could
// not be resolved.
const NotAvailable = "N/A"

// ParseStartTime parses a start time into a wall-clock time in loc (nil
// means UTC). FormLayout input is read in loc; RFC3339 input keeps its
// instant and is converted to loc.
func ParseStartTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.New(apperr.CodeInvalidArgument, "start time is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(FormLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, apperr.New(apperr.CodeInvalidArgument, "invalid start time %q, want YYYY-MM-DDTHH:MM", s)
}

// Lookup is the subset of the store the resolver reads from.
type Lookup interface {
	GetLocation(ctx context.Context, id string) (model.Location, error)
	GetConductor(ctx context.Context, id string) (model.Conductor, error)
	GetTerritory(ctx context.Context, id string) (model.Territory, error)
}

// EventInput is an appointment as submitted by a client.
type EventInput struct {
	Title        string   `json:"title"`
	StartTime    string   `json:"start_time"`
	LocationID   string   `json:"location_id"`
	ConductorID  string   `json:"conductor_id"`
	TerritoryIDs []string `json:"territory_ids"`
	Recurrence   string   `json:"recurrence,omitempty"`
}

// Resolver builds EventRecords from client input.
type Resolver struct {
	lookup Lookup
	loc    *time.Location
	now    func() time.Time
}

// NewResolver returns a Resolver reading references from lookup and
// interpreting start times in loc.
func NewResolver(lookup Lookup, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{lookup: lookup, loc: loc, now: time.Now}
}

// NewEvent validates in and resolves its references to display names.
// Missing references resolve to NotAvailable; unknown territory ids are
// left out of the joined territory numbers. Store failures other than
// NOT_FOUND are returned.
func (r *Resolver) NewEvent(ctx context.Context, in EventInput) (model.EventRecord, error) {
	start, err := ParseStartTime(in.StartTime, r.loc)
	if err != nil {
		return model.EventRecord{}, err
	}
	if in.Recurrence != "" {
		if err := ValidateRecurrence(in.Recurrence); err != nil {
			return model.EventRecord{}, err
		}
	}

	rec := model.EventRecord{
		Title:         strings.TrimSpace(in.Title),
		StartTime:     start,
		LocationID:    in.LocationID,
		ConductorID:   in.ConductorID,
		Recurrence:    strings.TrimSpace(in.Recurrence),
		LocationName:  NotAvailable,
		ConductorName: NotAvailable,
		CreatedAt:     r.now().UTC(),
	}

	if in.LocationID != "" {
		l, err := r.lookup.GetLocation(ctx, in.LocationID)
		switch {
		case err == nil:
			rec.LocationName = l.Name
			rec.URL = l.URL
		case !apperr.Is(err, apperr.CodeNotFound):
			return model.EventRecord{}, err
		}
	}

	if in.ConductorID != "" {
		c, err := r.lookup.GetConductor(ctx, in.ConductorID)
		switch {
		case err == nil:
			rec.ConductorName = c.Name
		case !apperr.Is(err, apperr.CodeNotFound):
			return model.EventRecord{}, err
		}
	}

	var numbers []string
	for _, id := range in.TerritoryIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		t, err := r.lookup.GetTerritory(ctx, id)
		if err != nil {
			if apperr.Is(err, apperr.CodeNotFound) {
				continue
			}
			return model.EventRecord{}, err
		}
		rec.TerritoryIDs = append(rec.TerritoryIDs, id)
		numbers = append(numbers, strconv.Itoa(t.Number))
	}
	rec.TerritoryNumber = strings.Join(numbers, ", ")

	return rec, nil
}
