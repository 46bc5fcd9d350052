package pdfcal

import (
	"predicacal/internal/model"
)

type attribute struct {
	label string
	value string
	link  string
}

func (s Style) attributes(ev model.CalendarEvent) []attribute {
	loc := s.Locale
	return []attribute{
		{label: loc.ConductorLabel, value: ev.ConductorName},
		{label: loc.LocationLabel, value: ev.LocationName, link: ev.URL},
		{label: loc.TerritoryLabel, value: ev.TerritoryNumber},
	}
}

// measureFont is the font a line drawn in f is centred with.
func (s Style) measureFont(f Font) Font {
	if s.MeasureAtDrawSize {
		return f
	}
	f.Size = legacyMeasureSize
	return f
}

func (s Style) linkFont(f Font) Font {
	if s.MeasureAtDrawSize {
		return f
	}
	f.Size = legacyLinkSize
	return f
}

// centredX returns the x at which text starts when centred in the cell.
func (r *Renderer) centredX(c Canvas, cellX float64, text string, f Font) float64 {
	return cellX + (r.style.CellWidth-c.StringWidth(text, r.style.measureFont(f)))/2
}

// drawEvent draws one event block starting at baseline y and returns the
// baseline where the next block may start.
func (r *Renderer) drawEvent(c Canvas, ev model.CalendarEvent, cellX, y float64) float64 {
	st := r.style

	if ev.Title != "" {
		text := ev.StartTime.Format("15:04") + " - " + ev.Title
		c.SetFont(eventTitleFont)
		c.DrawString(r.centredX(c, cellX, text, eventTitleFont), y, text)
		y -= st.LineHeight
	}

	c.SetFont(attributeFont)
	for _, a := range st.attributes(ev) {
		if a.value == "" {
			continue
		}
		text := a.label + ": " + a.value
		x := r.centredX(c, cellX, text, attributeFont)
		c.DrawString(x, y, text)

		if a.link != "" {
			lf := st.linkFont(attributeFont)
			c.LinkURL(a.link, x, y, x+c.StringWidth(text, lf), y+lf.Size)
		}
		y -= st.LineHeight
	}

	return y - st.EventGap
}

// drawDayEvents draws the events of one cell in bucket order.
func (r *Renderer) drawDayEvents(c Canvas, cell DayCell) {
	st := r.style
	var cursor float64
	for k, ev := range cell.Events {
		y := StackStart(cell.Y, st.CellHeight, st.EventGap, ev, k)
		if st.FlowStacking && k > 0 && cursor < y {
			y = cursor
		}
		cursor = r.drawEvent(c, ev, cell.X, y)
	}
}
