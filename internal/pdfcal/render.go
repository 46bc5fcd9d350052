// Package pdfcal renders a month of appointments as a single-page PDF grid.
//
// The page is laid out in points with the origin at the bottom-left corner:
//
//	+--------------------------------------------------+
//	|               Calendario Julio 2024              |  title
//	| Lunes | Martes | ... | Domingo                   |  weekday header
//	|  1    |  2     | ... |                           |  day rows
//	|  ...                                             |
//	+--------------------------------------------------+
//
// Each day cell shows its number and the events of that day, positioned in
// one of three time-of-day bands (morning, afternoon, evening). Cells whose
// events mention a legend tag are highlighted with the tag colour.
//
// A Renderer holds only static style configuration; every RenderMonth call
// builds its own document, so one Renderer may serve concurrent requests.
package pdfcal

import (
	"bytes"
	"fmt"
	"time"

	"predicacal/internal/apperr"
	appLog "predicacal/internal/log"
	"predicacal/internal/model"
)

// Renderer draws month pages with a fixed style.
type Renderer struct {
	style Style
}

// NewRenderer returns a Renderer for the given style.
func NewRenderer(style Style) *Renderer {
	return &Renderer{style: style}
}

// Style returns the renderer's style.
func (r *Renderer) Style() Style {
	return r.style
}

// Stats summarizes one render pass.
type Stats struct {
	Days       int
	Rows       int
	Drawn      int // events placed in a day cell
	Skipped    int // events with no start time
	OutOfRange int // events whose date is not in the month
}

// Filename is the download name of a month's PDF.
func Filename(year int, month time.Month) string {
	return fmt.Sprintf("calendario_%04d-%02d.pdf", year, int(month))
}

// RenderMonth renders the month page and returns the encoded PDF. Either a
// complete document is returned or an error; never partial output.
func (r *Renderer) RenderMonth(year int, month time.Month, events []model.CalendarEvent) ([]byte, error) {
	g, err := ComputeGrid(year, month, r.style.Dims)
	if err != nil {
		return nil, err
	}

	cv := newPDFCanvas(g.PageWidth, g.PageHeight)
	stats := r.draw(cv, g, events)

	var buf bytes.Buffer
	if err := cv.output(&buf); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "encode calendar %04d-%02d", year, int(month))
	}

	appLog.Debug("pdf month rendered",
		"year", year,
		"month", int(month),
		"rows", stats.Rows,
		"events_drawn", stats.Drawn,
		"events_skipped", stats.Skipped,
		"events_out_of_range", stats.OutOfRange,
		"bytes", buf.Len(),
	)
	return buf.Bytes(), nil
}

// draw lays the whole page out on c: title, weekday header, legend, then
// every day cell followed by its events.
func (r *Renderer) draw(c Canvas, g MonthGrid, events []model.CalendarEvent) Stats {
	stats := Stats{Days: g.Days, Rows: g.Rows}

	for _, ev := range events {
		if ev.StartTime.IsZero() {
			stats.Skipped++
			appLog.Warn("skipping event without start time", "record_id", ev.RecordID, "title", ev.Title)
		}
	}

	r.drawTitle(c, g)
	r.drawHeader(c, g)
	r.drawLegend(c, g)

	buckets := BucketEvents(g.Dates(), events)
	for i := 0; i < g.Days; i++ {
		cell := g.Cell(i)
		cell.Events = buckets[cell.Date]
		stats.Drawn += len(cell.Events)

		r.drawCell(c, cell)
		r.drawDayEvents(c, cell)
	}
	stats.OutOfRange = len(events) - stats.Skipped - stats.Drawn

	return stats
}

func (r *Renderer) drawTitle(c Canvas, g MonthGrid) {
	loc := r.style.Locale
	title := fmt.Sprintf("%s %s %d", loc.Title, loc.Months[g.Month-1], g.Year)

	c.SetFont(titleFont)
	c.SetFillColor(black)
	w := c.StringWidth(title, titleFont)
	c.DrawString(g.PageWidth/2-w/2, g.PageHeight-r.style.MarginTop/2, title)
}

// drawLegend lists each configured tag with its colour swatch. It sits in
// the area of the first day row; cells drawn afterwards cover it.
func (r *Renderer) drawLegend(c Canvas, g MonthGrid) {
	st := r.style
	if len(st.Legend) == 0 {
		return
	}

	c.SetFont(legendFont)
	c.DrawString(st.MarginSide, g.HeaderY()-20, st.Locale.LegendTitle)

	y := g.HeaderY() - 40
	for _, tc := range st.Legend {
		c.SetFillColor(tc.Color)
		c.Rect(st.MarginSide, y, 50, 15, true, false)
		c.SetFillColor(black)
		c.DrawString(st.MarginSide+55, y, tc.Tag)
		y -= 20
	}
}
