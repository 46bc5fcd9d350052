package pdfcal

import (
	"reflect"
	"testing"
	"time"

	"predicacal/internal/model"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func julyDays(t *testing.T) []time.Time {
	t.Helper()
	g, err := ComputeGrid(2024, time.July, DefaultStyle().Dims)
	if err != nil {
		t.Fatal(err)
	}
	return g.Dates()
}

func TestBucketEventsOrderPreservingAndIdempotent(t *testing.T) {
	days := julyDays(t)
	events := []model.CalendarEvent{
		{RecordID: "a", Title: "late", StartTime: at(2024, time.July, 3, 19, 0)},
		{RecordID: "b", Title: "early", StartTime: at(2024, time.July, 3, 8, 0)},
		{RecordID: "c", Title: "other day", StartTime: at(2024, time.July, 4, 10, 0)},
		{RecordID: "d", Title: "noon", StartTime: at(2024, time.July, 3, 12, 30)},
	}

	first := BucketEvents(days, events)
	second := BucketEvents(days, events)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("bucketing the same input twice must give identical groupings")
	}

	day3 := first[model.DateOf(at(2024, time.July, 3, 0, 0))]
	var ids []string
	for _, ev := range day3 {
		ids = append(ids, ev.RecordID)
	}
	if want := []string{"a", "b", "d"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("day 3 order = %v, want input order %v", ids, want)
	}
	if len(first) != 31 {
		t.Errorf("expected one bucket per day, got %d", len(first))
	}
}

func TestBucketEventsExactlyOnce(t *testing.T) {
	days := julyDays(t)
	events := []model.CalendarEvent{
		{RecordID: "in-1", StartTime: at(2024, time.July, 1, 0, 0)},
		{RecordID: "in-31", StartTime: at(2024, time.July, 31, 23, 59)},
		{RecordID: "june", StartTime: at(2024, time.June, 30, 10, 0)},
		{RecordID: "august", StartTime: at(2024, time.August, 1, 10, 0)},
		{RecordID: "malformed"},
	}

	buckets := BucketEvents(days, events)

	seen := map[string]int{}
	for day, evs := range buckets {
		for _, ev := range evs {
			seen[ev.RecordID]++
			if !ev.Date().Equal(day) {
				t.Errorf("event %s in bucket %v but dated %v", ev.RecordID, day, ev.Date())
			}
		}
	}
	if seen["in-1"] != 1 || seen["in-31"] != 1 {
		t.Errorf("in-month events must appear exactly once: %v", seen)
	}
	for _, id := range []string{"june", "august", "malformed"} {
		if seen[id] != 0 {
			t.Errorf("event %s must not be bucketed", id)
		}
	}
}

func TestBucketEventsIgnoresLocation(t *testing.T) {
	days := julyDays(t)
	laPaz := time.FixedZone("BOT", -4*3600)
	ev := model.CalendarEvent{RecordID: "x", StartTime: time.Date(2024, time.July, 10, 21, 0, 0, 0, laPaz)}

	buckets := BucketEvents(days, []model.CalendarEvent{ev})
	if got := buckets[model.DateOf(at(2024, time.July, 10, 0, 0))]; len(got) != 1 {
		t.Errorf("wall-clock date should decide the bucket, got %v", got)
	}
}

func TestBandOf(t *testing.T) {
	tests := map[int]Band{
		0:  BandEvening,
		5:  BandEvening,
		6:  BandMorning,
		11: BandMorning,
		12: BandAfternoon,
		17: BandAfternoon,
		18: BandEvening,
		23: BandEvening,
	}
	for hour, want := range tests {
		if got := BandOf(hour); got != want {
			t.Errorf("BandOf(%d) = %s, want %s", hour, got, want)
		}
	}
}

func TestBandAnchorsAndStacking(t *testing.T) {
	const ch = 210.0
	if got := BandMorning.Anchor(ch); !approx(got, 181.5) {
		t.Errorf("morning anchor = %v", got)
	}
	if got := BandAfternoon.Anchor(ch); !approx(got, 126) {
		t.Errorf("afternoon anchor = %v", got)
	}
	if got := BandEvening.Anchor(ch); !approx(got, 70.5) {
		t.Errorf("evening anchor = %v", got)
	}

	ev := model.CalendarEvent{StartTime: at(2024, time.July, 1, 9, 0)}
	if got := StackStart(100, ch, 8, ev, 2); !approx(got, 100+181.5-16) {
		t.Errorf("StackStart k=2 = %v", got)
	}
}
