package schedule

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"predicacal/internal/apperr"
	appLog "predicacal/internal/log"
	"predicacal/internal/model"
)

const defaultMaxOccurrencesPerRecord = 500

// ExpandOptions controls recurrence expansion.
type ExpandOptions struct {
	// MaxOccurrencesPerRecord caps how many occurrences a single recurring
	// record may produce in one month. Zero means the default.
	MaxOccurrencesPerRecord int
}

// ExpandResult is the outcome of expanding a set of records for a month.
type ExpandResult struct {
	// Events are sorted by start time; ties keep record order.
	Events []model.CalendarEvent
	// Malformed lists ids of records without a usable start time.
	Malformed []string
	// Truncated lists ids of records that hit the occurrence cap.
	Truncated []string
}

// ValidateRecurrence reports whether s is an RRULE that can be expanded.
func ValidateRecurrence(s string) error {
	if _, err := rrule.StrToRRule(trimRRule(s)); err != nil {
		return apperr.Wrap(apperr.CodeInvalidArgument, err, "invalid recurrence %q", s)
	}
	return nil
}

func trimRRule(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 6 && strings.EqualFold(s[:6], "RRULE:") {
		s = s[6:]
	}
	return s
}

// Expand returns the occurrences of records that fall in the given month.
// One-off records are kept when their start date is in the month; records
// with a Recurrence are expanded from their start time. Records without a
// start time are reported as malformed and otherwise ignored.
func Expand(records []model.EventRecord, year int, month time.Month, opts ExpandOptions) ExpandResult {
	var res ExpandResult
	if opts.MaxOccurrencesPerRecord <= 0 {
		opts.MaxOccurrencesPerRecord = defaultMaxOccurrencesPerRecord
	}

	for _, rec := range records {
		if rec.StartTime.IsZero() {
			res.Malformed = append(res.Malformed, rec.ID)
			appLog.Warn("skipping event without valid start time",
				"record_id", rec.ID,
				"raw_start_time", rec.RawStartTime,
			)
			continue
		}

		if rec.Recurrence == "" {
			if y, m, _ := rec.StartTime.Date(); y == year && m == month {
				res.Events = append(res.Events, occurrence(rec, rec.StartTime))
			}
			continue
		}

		times, hitCap, err := expandRecord(rec, year, month, opts.MaxOccurrencesPerRecord)
		if err != nil {
			appLog.Error("expand: failed to parse recurrence, using single occurrence", err,
				"record_id", rec.ID,
				"recurrence", rec.Recurrence,
			)
			if y, m, _ := rec.StartTime.Date(); y == year && m == month {
				res.Events = append(res.Events, occurrence(rec, rec.StartTime))
			}
			continue
		}
		if hitCap {
			res.Truncated = append(res.Truncated, rec.ID)
			appLog.Error("expand: truncated occurrences due to cap",
				errors.New("max occurrences reached"),
				"record_id", rec.ID,
				"cap", opts.MaxOccurrencesPerRecord,
			)
		}
		for _, t := range times {
			res.Events = append(res.Events, occurrence(rec, t))
		}
	}

	sort.SliceStable(res.Events, func(i, j int) bool {
		return res.Events[i].StartTime.Before(res.Events[j].StartTime)
	})
	return res
}

// expandRecord evaluates the record's RRULE inside the month, in the
// record's own location so wall-clock times stay put across DST changes.
func expandRecord(rec model.EventRecord, year int, month time.Month, max int) ([]time.Time, bool, error) {
	r, err := rrule.StrToRRule(trimRRule(rec.Recurrence))
	if err != nil {
		return nil, false, err
	}
	r.DTStart(rec.StartTime)

	loc := rec.StartTime.Location()
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	times := r.Between(from, to, true)
	if len(times) > max {
		return times[:max], true, nil
	}
	return times, false, nil
}

func occurrence(rec model.EventRecord, start time.Time) model.CalendarEvent {
	return model.CalendarEvent{
		RecordID:        rec.ID,
		Title:           rec.Title,
		StartTime:       start,
		ConductorName:   rec.ConductorName,
		LocationName:    rec.LocationName,
		URL:             rec.URL,
		TerritoryNumber: rec.TerritoryNumber,
	}
}
