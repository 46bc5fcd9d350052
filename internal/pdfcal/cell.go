package pdfcal

import (
	"strconv"
	"strings"

	"predicacal/internal/model"
)

// CellColor picks the background of a day cell. Days alternate between
// Color1 and Color2 by index; a legend tag found in an event title
// overrides that. Events are scanned in order and tags in legend order;
// the first hit wins.
func (s Style) CellColor(index int, events []model.CalendarEvent) Color {
	if c, ok := s.tagColor(events); ok {
		return c
	}
	if index%2 == 0 {
		return s.Color1
	}
	return s.Color2
}

func (s Style) tagColor(events []model.CalendarEvent) (Color, bool) {
	for _, ev := range events {
		for _, tc := range s.Legend {
			if strings.Contains(ev.Title, tc.Tag) {
				return tc.Color, true
			}
		}
	}
	return Color{}, false
}

// drawHeader draws the shaded weekday band above the day grid.
func (r *Renderer) drawHeader(c Canvas, g MonthGrid) {
	st := r.style
	y := g.HeaderY()
	c.SetFont(headerFont)
	for i, name := range st.Locale.Weekdays {
		x := st.MarginSide + float64(i)*st.CellWidth
		c.SetFillColor(headerGrey)
		c.Rect(x, y, st.CellWidth, st.HeaderHeight, true, false)
		c.SetFillColor(black)
		w := c.StringWidth(name, headerFont)
		c.DrawString(x+st.CellWidth/2-w/2, y+7, name)
	}
}

// drawCell paints the background, border and day number of one cell.
func (r *Renderer) drawCell(c Canvas, cell DayCell) {
	st := r.style

	c.SetFillColor(st.CellColor(cell.Index, cell.Events))
	c.Rect(cell.X, cell.Y, st.CellWidth, st.CellHeight, true, false)
	c.SetFillColor(black)
	c.Rect(cell.X, cell.Y, st.CellWidth, st.CellHeight, false, true)

	c.SetFont(dayNumberFont)
	c.DrawString(cell.X+2, cell.Y+st.CellHeight-16, strconv.Itoa(cell.Date.Day()))
}
