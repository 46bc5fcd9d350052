package pdfcal

import (
	"time"

	"predicacal/internal/model"
)

// BucketEvents groups events by calendar day. Per-day order follows the
// input order, so the result is deterministic for a given input. Events
// whose date is not among days, or whose start time is zero, are dropped.
func BucketEvents(days []time.Time, events []model.CalendarEvent) map[time.Time][]model.CalendarEvent {
	buckets := make(map[time.Time][]model.CalendarEvent, len(days))
	for _, d := range days {
		buckets[model.DateOf(d)] = nil
	}

	for _, ev := range events {
		if ev.StartTime.IsZero() {
			continue
		}
		key := ev.Date()
		if _, ok := buckets[key]; !ok {
			continue
		}
		buckets[key] = append(buckets[key], ev)
	}
	return buckets
}

// Band is a time-of-day bucket that positions event text vertically inside
// a day cell.
type Band int

const (
	BandEvening   Band = iota // 18:00-06:00, lower area
	BandAfternoon             // 12:00-18:00, middle
	BandMorning               // 06:00-12:00, upper area
)

func (b Band) String() string {
	switch b {
	case BandMorning:
		return "morning"
	case BandAfternoon:
		return "afternoon"
	default:
		return "evening"
	}
}

// BandOf returns the band for an hour of day.
func BandOf(hour int) Band {
	switch {
	case hour >= 6 && hour < 12:
		return BandMorning
	case hour >= 12 && hour < 18:
		return BandAfternoon
	default:
		return BandEvening
	}
}

// Anchor is the band's first baseline, measured up from the cell bottom.
func (b Band) Anchor(cellHeight float64) float64 {
	switch b {
	case BandMorning:
		return cellHeight*0.75 + 24
	case BandAfternoon:
		return cellHeight*0.5 + 21
	default:
		return cellHeight*0.25 + 18
	}
}

// StackStart is the first baseline of the k-th event of a day in a cell
// whose bottom edge is at cellY. Events in crowded bands may overlap.
func StackStart(cellY, cellHeight, eventGap float64, ev model.CalendarEvent, k int) float64 {
	return cellY + BandOf(ev.StartTime.Hour()).Anchor(cellHeight) - float64(k)*eventGap
}
