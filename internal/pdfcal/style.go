package pdfcal

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"predicacal/internal/apperr"
	"predicacal/internal/config"
)

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// ParseColor parses "#RRGGBB" (or "#RGB"); the leading '#' is optional.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, apperr.Wrap(apperr.CodeInvalidArgument, err, "invalid colour %q", s)
	}
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

// Hex formats c as "#RRGGBB".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

var (
	black      = Color{}
	headerGrey = Color{R: 217, G: 217, B: 217} // 0.85 grey
)

// Font identifies one of the PDF core fonts at a given point size.
type Font struct {
	Family string
	Bold   bool
	Size   float64
}

const coreFamily = "Helvetica"

var (
	titleFont      = Font{Family: coreFamily, Bold: true, Size: 28}
	headerFont     = Font{Family: coreFamily, Bold: true, Size: 18}
	legendFont     = Font{Family: coreFamily, Bold: true, Size: 12}
	dayNumberFont  = Font{Family: coreFamily, Bold: true, Size: 18}
	eventTitleFont = Font{Family: coreFamily, Bold: true, Size: 16}
	attributeFont  = Font{Family: coreFamily, Size: 14}
)

// Sizes used for centring and link boxes when MeasureAtDrawSize is off.
const (
	legacyMeasureSize = 13
	legacyLinkSize    = 12
)

// TagColor highlights a day cell whose events mention Tag in their title.
type TagColor struct {
	Tag   string
	Color Color
}

// Dims holds the page geometry inputs, in PDF points.
type Dims struct {
	CellWidth    float64
	CellHeight   float64
	HeaderHeight float64
	MarginTop    float64
	MarginBottom float64
	MarginSide   float64
}

// Locale carries every user-visible string printed on the page.
type Locale struct {
	Title          string
	Months         [12]string
	Weekdays       [7]string // Monday first
	LegendTitle    string
	ConductorLabel string
	LocationLabel  string
	TerritoryLabel string
}

var locales = map[string]Locale{
	"es": {
		Title: "Calendario",
		Months: [12]string{"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
			"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre"},
		Weekdays:       [7]string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"},
		LegendTitle:    "Leyenda de Tags:",
		ConductorLabel: "Conductor",
		LocationLabel:  "Ubicación",
		TerritoryLabel: "Territorio",
	},
	"en": {
		Title: "Calendar",
		Months: [12]string{"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December"},
		Weekdays:       [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
		LegendTitle:    "Tag legend:",
		ConductorLabel: "Conductor",
		LocationLabel:  "Location",
		TerritoryLabel: "Territory",
	},
}

// LocaleFor returns the named locale, falling back to Spanish.
func LocaleFor(name string) Locale {
	if l, ok := locales[name]; ok {
		return l
	}
	return locales["es"]
}

// Style is the static configuration of a rendered month page.
type Style struct {
	Dims

	LineHeight float64
	EventGap   float64

	Color1 Color
	Color2 Color
	Legend []TagColor

	Locale Locale

	MeasureAtDrawSize bool
	FlowStacking      bool
}

// DefaultStyle is the style of config.DefaultStyle, already validated.
func DefaultStyle() Style {
	st, err := StyleFromConfig(config.DefaultStyle())
	if err != nil {
		// The built-in colours are valid hex literals.
		panic(err)
	}
	return st
}

// StyleFromConfig validates a config.StyleConfig and converts it.
func StyleFromConfig(sc config.StyleConfig) (Style, error) {
	sc.Locale = strings.ToLower(sc.Locale)

	st := Style{
		Dims: Dims{
			CellWidth:    sc.CellWidth,
			CellHeight:   sc.CellHeight,
			HeaderHeight: sc.HeaderHeight,
			MarginTop:    sc.MarginTop,
			MarginBottom: sc.MarginBottom,
			MarginSide:   sc.MarginSide,
		},
		LineHeight:        sc.LineHeight,
		EventGap:          sc.EventGap,
		Locale:            LocaleFor(sc.Locale),
		MeasureAtDrawSize: sc.MeasureAtDrawSize == nil || *sc.MeasureAtDrawSize,
		FlowStacking:      sc.FlowStacking,
	}
	if st.CellWidth <= 0 || st.CellHeight <= 0 {
		return Style{}, apperr.New(apperr.CodeInvalidArgument, "cell size must be positive, got %vx%v", st.CellWidth, st.CellHeight)
	}

	var err error
	if st.Color1, err = ParseColor(sc.Color1); err != nil {
		return Style{}, err
	}
	if st.Color2, err = ParseColor(sc.Color2); err != nil {
		return Style{}, err
	}
	for _, le := range sc.Legend {
		if le.Tag == "" {
			continue
		}
		c, err := ParseColor(le.Color)
		if err != nil {
			return Style{}, err
		}
		st.Legend = append(st.Legend, TagColor{Tag: le.Tag, Color: c})
	}
	return st, nil
}
