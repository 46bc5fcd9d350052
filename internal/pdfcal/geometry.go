package pdfcal

import (
	"time"

	"predicacal/internal/apperr"
	"predicacal/internal/model"
)

// MonthGrid is the page geometry for one month. It is derived once per
// render call and never mutated.
type MonthGrid struct {
	Year  int
	Month time.Month

	FirstDay time.Time
	LastDay  time.Time
	Days     int

	// Offset is the weekday of the first day, Monday=0.
	Offset int
	// Rows counts the day rows plus one row reserved for the weekday header.
	Rows int

	PageWidth  float64
	PageHeight float64

	dims Dims
}

// DayCell is the placement of one calendar day. X/Y is the bottom-left
// corner in page coordinates (origin bottom-left, y up).
type DayCell struct {
	Date  time.Time
	Index int // zero-based day of month
	Row   int // 1-based; row 0 is the weekday header
	Col   int // 0=Monday..6=Sunday
	X, Y  float64

	Events []model.CalendarEvent
}

// ComputeGrid computes the month geometry for the given dimensions.
func ComputeGrid(year int, month time.Month, d Dims) (MonthGrid, error) {
	if month < time.January || month > time.December {
		return MonthGrid{}, apperr.New(apperr.CodeInvalidArgument, "month %d out of range 1-12", int(month))
	}
	if year < 1 || year > 9999 {
		return MonthGrid{}, apperr.New(apperr.CodeInvalidArgument, "year %d out of range 1-9999", year)
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := DaysIn(year, month)
	offset := mondayIndex(first.Weekday())

	totalSlots := days + offset
	monthRows := (totalSlots + 6) / 7
	rows := monthRows + 1

	return MonthGrid{
		Year:       year,
		Month:      month,
		FirstDay:   first,
		LastDay:    first.AddDate(0, 0, days-1),
		Days:       days,
		Offset:     offset,
		Rows:       rows,
		PageWidth:  2*d.MarginSide + 7*d.CellWidth,
		PageHeight: d.MarginTop + d.MarginBottom + d.HeaderHeight + d.CellHeight*float64(rows-1),
		dims:       d,
	}, nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Dates lists every day of the month in order.
func (g MonthGrid) Dates() []time.Time {
	out := make([]time.Time, g.Days)
	for i := range out {
		out[i] = g.FirstDay.AddDate(0, 0, i)
	}
	return out
}

// Cell places the day with the given zero-based index.
func (g MonthGrid) Cell(index int) DayCell {
	date := g.FirstDay.AddDate(0, 0, index)
	row := (index+g.Offset)/7 + 1
	col := mondayIndex(date.Weekday())
	return DayCell{
		Date:  date,
		Index: index,
		Row:   row,
		Col:   col,
		X:     g.dims.MarginSide + float64(col)*g.dims.CellWidth,
		Y:     g.gridTop() - float64(row)*g.dims.CellHeight,
	}
}

// HeaderY is the bottom edge of the weekday header band.
func (g MonthGrid) HeaderY() float64 {
	return g.gridTop()
}

func (g MonthGrid) gridTop() float64 {
	return g.PageHeight - g.dims.MarginTop - g.dims.HeaderHeight
}
