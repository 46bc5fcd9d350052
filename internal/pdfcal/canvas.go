package pdfcal

import (
	"io"

	"github.com/go-pdf/fpdf"
)

// Canvas is the drawing surface the renderer targets. Coordinates follow
// the page model used throughout this package: origin at the bottom-left
// corner, y growing upwards, text positioned by its baseline.
type Canvas interface {
	SetFont(f Font)
	SetFillColor(c Color)
	// Rect draws a rectangle with its bottom-left corner at (x, y).
	Rect(x, y, w, h float64, fill, stroke bool)
	// DrawString draws s with its baseline starting at (x, y) in the
	// current font.
	DrawString(x, y float64, s string)
	// StringWidth measures s in font f without changing the current font.
	StringWidth(s string, f Font) float64
	// LinkURL makes the box (x1,y1)-(x2,y2) a clickable link to url.
	LinkURL(url string, x1, y1, x2, y2 float64)
}

// pdfCanvas implements Canvas on top of fpdf, whose origin is the top-left
// corner. Each render call owns exactly one pdfCanvas.
type pdfCanvas struct {
	pdf    *fpdf.Fpdf
	height float64
	font   Font
	tr     func(string) string
}

func newPDFCanvas(width, height float64) *pdfCanvas {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTextColor(int(black.R), int(black.G), int(black.B))
	pdf.SetDrawColor(int(black.R), int(black.G), int(black.B))
	pdf.AddPage()

	c := &pdfCanvas{
		pdf:    pdf,
		height: height,
		// Core fonts are cp1252 encoded; labels such as "Ubicación" need
		// translating from UTF-8.
		tr: pdf.UnicodeTranslatorFromDescriptor(""),
	}
	c.SetFont(Font{Family: coreFamily, Size: 11})
	return c
}

func fontStyle(f Font) string {
	if f.Bold {
		return "B"
	}
	return ""
}

func (c *pdfCanvas) SetFont(f Font) {
	c.font = f
	c.pdf.SetFont(f.Family, fontStyle(f), f.Size)
}

func (c *pdfCanvas) SetFillColor(col Color) {
	c.pdf.SetFillColor(int(col.R), int(col.G), int(col.B))
}

func (c *pdfCanvas) Rect(x, y, w, h float64, fill, stroke bool) {
	style := ""
	if fill {
		style += "F"
	}
	if stroke {
		style += "D"
	}
	if style == "" {
		return
	}
	c.pdf.Rect(x, c.height-(y+h), w, h, style)
}

func (c *pdfCanvas) DrawString(x, y float64, s string) {
	c.pdf.Text(x, c.height-y, c.tr(s))
}

func (c *pdfCanvas) StringWidth(s string, f Font) float64 {
	if f == c.font {
		return c.pdf.GetStringWidth(c.tr(s))
	}
	prev := c.font
	c.pdf.SetFont(f.Family, fontStyle(f), f.Size)
	w := c.pdf.GetStringWidth(c.tr(s))
	c.pdf.SetFont(prev.Family, fontStyle(prev), prev.Size)
	return w
}

func (c *pdfCanvas) LinkURL(url string, x1, y1, x2, y2 float64) {
	c.pdf.LinkString(x1, c.height-y2, x2-x1, y2-y1, url)
}

// output encodes the finished document. Any error recorded by fpdf while
// drawing surfaces here.
func (c *pdfCanvas) output(w io.Writer) error {
	if err := c.pdf.Error(); err != nil {
		return err
	}
	return c.pdf.Output(w)
}
