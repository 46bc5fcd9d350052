package pdfcal

import (
	"math"
	"testing"
	"time"

	"predicacal/internal/apperr"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestComputeGridRows(t *testing.T) {
	dims := DefaultStyle().Dims

	tests := []struct {
		name     string
		year     int
		month    time.Month
		days     int
		offset   int
		wantRows int
	}{
		{"leap february starts thursday", 2024, time.February, 29, 3, 6},
		{"31 days starting saturday", 2025, time.March, 31, 5, 7},
		{"july 2024 starts monday", 2024, time.July, 31, 0, 6},
		{"february filling four rows", 2021, time.February, 28, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ComputeGrid(tt.year, tt.month, dims)
			if err != nil {
				t.Fatalf("ComputeGrid: %v", err)
			}
			if g.Days != tt.days {
				t.Errorf("Days = %d, want %d", g.Days, tt.days)
			}
			if g.Offset != tt.offset {
				t.Errorf("Offset = %d, want %d", g.Offset, tt.offset)
			}
			if g.Rows != tt.wantRows {
				t.Errorf("Rows = %d, want %d", g.Rows, tt.wantRows)
			}
		})
	}
}

func TestComputeGridClosedForm(t *testing.T) {
	dims := DefaultStyle().Dims
	for year := 1999; year <= 2031; year++ {
		for m := time.January; m <= time.December; m++ {
			g, err := ComputeGrid(year, m, dims)
			if err != nil {
				t.Fatalf("%d-%02d: %v", year, m, err)
			}
			want := int(math.Ceil(float64(g.Days+g.Offset)/7)) + 1
			if g.Rows != want {
				t.Fatalf("%d-%02d: Rows = %d, want %d", year, m, g.Rows, want)
			}
			if !g.LastDay.Equal(g.FirstDay.AddDate(0, 0, g.Days-1)) || g.LastDay.Month() != m {
				t.Fatalf("%d-%02d: LastDay = %v", year, m, g.LastDay)
			}
			// The last day always lands in the bottom row, on the bottom margin.
			last := g.Cell(g.Days - 1)
			if last.Row != g.Rows-1 || !approx(last.Y, dims.MarginBottom) {
				t.Fatalf("%d-%02d: last cell row=%d y=%v", year, m, last.Row, last.Y)
			}
		}
	}
}

func TestComputeGridPageSize(t *testing.T) {
	dims := DefaultStyle().Dims
	g, err := ComputeGrid(2024, time.July, dims)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(g.PageWidth, 2*36+7*270) {
		t.Errorf("PageWidth = %v", g.PageWidth)
	}
	wantHeight := 0.7*72 + 0.5*72 + 25 + 210*5
	if !approx(g.PageHeight, wantHeight) {
		t.Errorf("PageHeight = %v, want %v", g.PageHeight, wantHeight)
	}
}

func TestCellPlacement(t *testing.T) {
	dims := DefaultStyle().Dims
	g, err := ComputeGrid(2024, time.July, dims)
	if err != nil {
		t.Fatal(err)
	}

	first := g.Cell(0)
	if first.Row != 1 || first.Col != 0 || first.Date.Day() != 1 {
		t.Errorf("first cell = %+v", first)
	}
	if !approx(first.X, 36) || !approx(first.Y, g.PageHeight-dims.MarginTop-dims.HeaderHeight-dims.CellHeight) {
		t.Errorf("first cell origin = (%v, %v)", first.X, first.Y)
	}

	// 15 July 2024 is a Monday in the third week.
	d15 := g.Cell(14)
	if d15.Row != 3 || d15.Col != 0 || d15.Date.Day() != 15 {
		t.Errorf("day 15 = row %d col %d day %d", d15.Row, d15.Col, d15.Date.Day())
	}

	// 31 July 2024 is a Wednesday.
	d31 := g.Cell(30)
	if d31.Col != 2 || d31.Row != 5 {
		t.Errorf("day 31 = row %d col %d", d31.Row, d31.Col)
	}
	if !approx(d31.X, 36+2*270) {
		t.Errorf("day 31 x = %v", d31.X)
	}

	if len(g.Dates()) != 31 || g.Dates()[30].Day() != 31 {
		t.Errorf("Dates() = %v", g.Dates())
	}
}

func TestComputeGridInvalid(t *testing.T) {
	dims := DefaultStyle().Dims
	cases := []struct {
		year  int
		month time.Month
	}{
		{2024, 0},
		{2024, 13},
		{0, time.March},
		{10000, time.March},
	}
	for _, c := range cases {
		_, err := ComputeGrid(c.year, c.month, dims)
		if !apperr.Is(err, apperr.CodeInvalidArgument) {
			t.Errorf("ComputeGrid(%d, %d) err = %v, want INVALID_ARGUMENT", c.year, c.month, err)
		}
	}
}

func TestDaysIn(t *testing.T) {
	if DaysIn(2023, time.February) != 28 {
		t.Error("2023-02 has 28 days")
	}
	if DaysIn(2024, time.February) != 29 {
		t.Error("2024-02 has 29 days")
	}
	if DaysIn(2024, time.December) != 31 {
		t.Error("2024-12 has 31 days")
	}
}
