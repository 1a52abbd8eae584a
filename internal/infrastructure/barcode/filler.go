package barcode

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/erp/labels/internal/domain/labeling"
	"github.com/erp/labels/internal/domain/shared"
	"github.com/erp/labels/internal/infrastructure/telemetry"
)

// Task is a pending barcode draw registered by the label renderer. ID is the
// id of the placeholder element the drawn barcode replaces.
type Task struct {
	ID         string
	Code       string
	Symbology  labeling.Symbology // empty means detect from Code
	ShowText   bool
	WidthMM    float64
	HeightMM   float64
	FontSizeMM float64
	ShiftMM    float64
	Continuous bool
}

// Outcome reports how a task was filled. Placeholder is set when no barcode
// could be drawn; Err then carries INVALID_BARCODE_PAYLOAD or BARCODE_DRAW_FAILED.
type Outcome struct {
	TaskID      string
	Artifact    *Artifact
	Fallback    bool
	Placeholder bool
	Err         error
}

// Filler draws barcodes for pending tasks
type Filler struct {
	drawer  Drawer
	metrics *telemetry.LabelMetrics
	logger  *zap.Logger
}

// NewFiller creates a Filler. A nil drawer uses the boombuler drawer.
func NewFiller(drawer Drawer, metrics *telemetry.LabelMetrics, logger *zap.Logger) *Filler {
	if drawer == nil {
		drawer = NewDrawer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filler{drawer: drawer, metrics: metrics, logger: logger}
}

// Fill draws the task's barcode. When the detected symbology rejects the
// payload the draw is retried once as CODE128 with the payload folded to
// ASCII, which succeeds for any non-empty string that fits the box.
func (f *Filler) Fill(ctx context.Context, task Task) Outcome {
	out := Outcome{TaskID: task.ID}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	code := strings.TrimSpace(task.Code)
	if code == "" {
		out.Placeholder = true
		out.Err = shared.NewDomainError(shared.CodeInvalidBarcodePayload, "Empty barcode payload")
		f.metrics.BarcodeFallback("placeholder")
		return out
	}

	opts := Options{
		Symbology:    task.Symbology,
		WidthMM:      task.WidthMM,
		HeightMM:     task.HeightMM,
		DisplayValue: task.ShowText,
		FontSizeMM:   task.FontSizeMM,
		TextMarginMM: task.FontSizeMM * 0.2,
	}
	if opts.Symbology == "" {
		opts.Symbology = labeling.DetectSymbology(code)
	}

	artifact, err := f.drawer.Draw(code, opts)
	if err != nil {
		f.logger.Debug("barcode rejected, retrying as CODE128",
			zap.String("task_id", task.ID),
			zap.String("symbology", string(opts.Symbology)),
			zap.Error(err))
		opts.Symbology = labeling.SymbologyCode128
		artifact, err = f.drawer.Draw(FoldASCII(code), opts)
		out.Fallback = true
		f.metrics.BarcodeFallback("code128")
	}
	if err != nil {
		f.logger.Warn("barcode could not be drawn",
			zap.String("task_id", task.ID),
			zap.Error(err))
		out.Placeholder = true
		if errors.Is(err, ErrTooSmall) {
			out.Err = shared.NewDomainError(shared.CodeBarcodeDrawFailed, "Barcode does not fit the label")
		} else {
			out.Err = shared.NewDomainError(shared.CodeBarcodeDrawFailed, "Barcode could not be drawn: "+err.Error())
		}
		f.metrics.BarcodeFallback("placeholder")
		return out
	}

	Align(artifact, task.ShiftMM, task.Continuous)
	out.Artifact = artifact
	return out
}

// FoldASCII strips accents and replaces the remaining non-ASCII runes with '?'
// so the payload fits the CODE128 character set
func FoldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return '?'
		}
		return r
	}, folded)
}
