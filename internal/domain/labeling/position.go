package labeling

import "math"

// Point is an offset in millimeters from the page's top-left corner
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position computes where the label at (row, col) sits on its page.
//
// On sheets the calibration correction is multiplied by the index, since print
// drift accumulates across the sheet. Roll printers have a single cell: x is the
// margin or the centered offset plus the x correction, y is the margin or the
// clamped centered offset. CenterOffset is always added to x. Negative margins are
// kept as is.
func Position(f LabelFormat, p PrinterProfile, c Correction, row, col int) Point {
	if !p.Family.IsContinuous() {
		r, k := float64(row), float64(col)
		return Point{
			X: f.MarginX + k*(f.WidthMM+f.HorizontalSpacing) + k*c.X + f.CenterOffset,
			Y: f.MarginY + r*(f.HeightMM+f.VerticalSpacing) + r*c.Y,
		}
	}

	x := f.MarginX
	if f.HorizontalCenter {
		x = math.Max(0, (p.PageWidthMM-f.WidthMM)/2) + c.X
	}
	y := f.MarginY
	if f.VerticalCenter {
		y = math.Max(0, (p.PageHeightMM-f.HeightMM)/2)
	}
	return Point{X: x + f.CenterOffset, Y: y}
}
