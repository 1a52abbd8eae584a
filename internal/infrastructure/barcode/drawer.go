package barcode

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	bc "github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/ean"

	"github.com/erp/labels/internal/domain/labeling"
)

// Options controls the drawn size and text of a barcode, in millimeters
type Options struct {
	Symbology    labeling.Symbology
	WidthMM      float64
	HeightMM     float64
	DisplayValue bool
	FontSizeMM   float64
	MarginMM     float64
	TextMarginMM float64
}

// Drawer turns a payload into bars
type Drawer interface {
	Draw(payload string, opts Options) (*Artifact, error)
}

// ErrTooSmall is returned when the box cannot hold the bars
var ErrTooSmall = errors.New("barcode box too small")

// BoombulerDrawer encodes with github.com/boombuler/barcode and lays the
// modules out as vector bars
type BoombulerDrawer struct{}

// NewDrawer creates the default drawer
func NewDrawer() *BoombulerDrawer {
	return &BoombulerDrawer{}
}

// Draw encodes payload with the requested symbology. EAN and UPC payloads are
// checked against their check digit.
func (d *BoombulerDrawer) Draw(payload string, opts Options) (*Artifact, error) {
	code, caption, err := encode(payload, opts.Symbology)
	if err != nil {
		return nil, err
	}

	width := opts.WidthMM * UnitsPerMM
	height := opts.HeightMM * UnitsPerMM
	margin := opts.MarginMM * UnitsPerMM

	captionH := 0.0
	fontSize := opts.FontSizeMM * UnitsPerMM
	textMargin := opts.TextMarginMM * UnitsPerMM
	if opts.DisplayValue {
		captionH = fontSize + textMargin
	}

	modules := code.Bounds().Dx()
	barsH := height - 2*margin - captionH
	if modules == 0 || barsH <= 0 || width-2*margin <= 0 {
		return nil, fmt.Errorf("%w: %.1fx%.1fmm for %d modules", ErrTooSmall, opts.WidthMM, opts.HeightMM, modules)
	}
	moduleW := (width - 2*margin) / float64(modules)

	a := &Artifact{
		Symbology: opts.Symbology,
		Content:   caption,
		Width:     width,
		Height:    height,
	}
	for x := 0; x < modules; {
		if !dark(code, x) {
			x++
			continue
		}
		start := x
		for x < modules && dark(code, x) {
			x++
		}
		a.Bars = append(a.Bars, Bar{
			X: margin + float64(start)*moduleW,
			Y: margin,
			W: float64(x-start) * moduleW,
			H: barsH,
		})
	}
	if opts.DisplayValue {
		a.Caption = &Caption{
			X:     width / 2,
			Y:     margin + barsH + textMargin + fontSize*0.8,
			Size:  fontSize,
			Value: caption,
		}
	}
	return a, nil
}

func encode(payload string, sym labeling.Symbology) (bc.Barcode, string, error) {
	switch sym {
	case labeling.SymbologyEAN13, labeling.SymbologyEAN8:
		code, err := ean.Encode(payload)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s: %w", sym, err)
		}
		if !strings.HasPrefix(code.Metadata().CodeKind, "EAN") || len(code.Content()) != expectedLength(sym) {
			return nil, "", fmt.Errorf("encode %s: payload has %d digits", sym, len(payload))
		}
		return code, code.Content(), nil
	case labeling.SymbologyUPC:
		// UPC-A is EAN-13 with a leading zero, the bars are identical
		code, err := ean.Encode("0" + payload)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s: %w", sym, err)
		}
		return code, strings.TrimPrefix(code.Content(), "0"), nil
	default:
		// code set C is picked automatically for digit runs
		code, err := code128.Encode(payload)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s: %w", sym, err)
		}
		return code, payload, nil
	}
}

func expectedLength(sym labeling.Symbology) int {
	if sym == labeling.SymbologyEAN8 {
		return 8
	}
	return 13
}

func dark(code image.Image, x int) bool {
	return color.GrayModel.Convert(code.At(x, 0)).(color.Gray).Y < 128
}
