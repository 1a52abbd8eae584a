// Package barcode draws label barcodes with boombuler/barcode, aligns the
// result, and serializes it as inline SVG with ajstarks/svgo.
package barcode

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/erp/labels/internal/domain/labeling"
)

// UnitsPerMM is the resolution of artifact coordinates (tenths of a millimeter)
const UnitsPerMM = 10.0

// Bar is one dark run of modules
type Bar struct {
	X, Y, W, H float64
}

// Caption is the human-readable payload printed under the bars.
// X is the horizontal center and Y the text baseline.
type Caption struct {
	X, Y  float64
	Size  float64
	Value string
}

// Artifact is a drawn barcode in artifact units. Width and Height define the
// viewBox; the label scales it to the placeholder box.
type Artifact struct {
	Symbology labeling.Symbology
	Content   string
	Width     float64
	Height    float64
	Bars      []Bar
	Caption   *Caption
	// ShiftApplied records that the vertical shift is already in the coordinates
	ShiftApplied bool
	// Normalized records that coordinates were rounded to whole units
	Normalized bool
}

// Align rounds every coordinate to whole units and, for roll printers, moves the
// barcode down by shiftMM. The shift is applied at most once per artifact, so
// calling Align again is a no-op.
func Align(a *Artifact, shiftMM float64, continuous bool) {
	if a == nil {
		return
	}
	if continuous && shiftMM != 0 && !a.ShiftApplied {
		dy := shiftMM * UnitsPerMM
		for i := range a.Bars {
			a.Bars[i].Y += dy
		}
		if a.Caption != nil {
			a.Caption.Y += dy
		}
		a.ShiftApplied = true
	}

	for i, b := range a.Bars {
		x0, x1 := math.Round(b.X), math.Round(b.X+b.W)
		y0, y1 := math.Round(b.Y), math.Round(b.Y+b.H)
		a.Bars[i] = Bar{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
	}
	if a.Caption != nil {
		a.Caption.X = math.Round(a.Caption.X)
		a.Caption.Y = math.Round(a.Caption.Y)
		a.Caption.Size = math.Round(a.Caption.Size)
	}
	a.Width = math.Round(a.Width)
	a.Height = math.Round(a.Height)
	a.Normalized = true
}

// SVG serializes the artifact as an inline <svg> element without the XML
// declaration, ready to be embedded in an HTML document
func (a *Artifact) SVG() string {
	var buf bytes.Buffer
	canvas := svg.New(&buf)

	vw, vh := roundInt(a.Width), roundInt(a.Height)
	canvas.Startpercent(100, 100,
		fmt.Sprintf(`viewBox="0 0 %d %d"`, vw, vh),
		`preserveAspectRatio="none"`,
		`overflow="visible"`,
		fmt.Sprintf(`data-symbology="%s"`, a.Symbology),
	)
	canvas.Group(fmt.Sprintf(`data-shift-applied="%t"`, a.ShiftApplied), "fill:#000;stroke:none")
	for _, b := range a.Bars {
		canvas.Rect(roundInt(b.X), roundInt(b.Y), roundInt(b.W), roundInt(b.H))
	}
	if a.Caption != nil {
		canvas.Text(roundInt(a.Caption.X), roundInt(a.Caption.Y), a.Caption.Value,
			fmt.Sprintf("font-family:monospace;text-anchor:middle;font-size:%dpx", roundInt(a.Caption.Size)))
	}
	canvas.Gend()
	canvas.End()

	out := buf.String()
	if i := strings.Index(out, "<svg"); i > 0 {
		out = out[i:]
	}
	return out
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
