package model

import "time"

// Location is a meeting place. URL usually points at a map pin and becomes
// the clickable link on the printed calendar.
type Location struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
	URL  string `json:"url,omitempty" bson:"url,omitempty"`
}

// Conductor is the person assigned to run an appointment.
type Conductor struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// Territory is a numbered geographic assignment area.
type Territory struct {
	ID     string `json:"id" bson:"_id"`
	Number int    `json:"number" bson:"number"`
}

// EventRecord is a persisted appointment. Display names are resolved when
// the record is created so that later renames or deletions of a location or
// conductor do not rewrite history.
type EventRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// StartTime is the wall-clock start. A zero value means the stored
	// timestamp was missing or unparsable; RawStartTime then holds whatever
	// the store contained, for diagnostics.
	StartTime    time.Time `json:"start_time"`
	RawStartTime string    `json:"raw_start_time,omitempty"`

	LocationID   string   `json:"location_id,omitempty"`
	ConductorID  string   `json:"conductor_id,omitempty"`
	TerritoryIDs []string `json:"territory_ids,omitempty"`

	LocationName    string `json:"location_name,omitempty"`
	URL             string `json:"url,omitempty"`
	ConductorName   string `json:"conductor_name,omitempty"`
	TerritoryNumber string `json:"territory_number,omitempty"`

	// Recurrence is an optional RRULE (e.g. "FREQ=WEEKLY;BYDAY=SA").
	Recurrence string `json:"recurrence,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// CalendarEvent is a single concrete appointment ready for display
// (after recurrence expansion and reference resolution).
type CalendarEvent struct {
	// RecordID links the occurrence back to its EventRecord.
	RecordID string

	Title string
	// StartTime is a wall-clock value; only its date and hour/minute are
	// used for layout.
	StartTime time.Time

	ConductorName   string
	LocationName    string
	URL             string
	TerritoryNumber string
}

// Date returns the calendar day of the event at midnight UTC, the key used
// for day bucketing.
func (e CalendarEvent) Date() time.Time {
	return DateOf(e.StartTime)
}

// DateOf truncates t to its calendar day, dropping location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
