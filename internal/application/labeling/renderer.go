package labeling

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/erp/labels/internal/domain/catalog"
	domain "github.com/erp/labels/internal/domain/labeling"
	"github.com/erp/labels/internal/infrastructure/barcode"
	"github.com/erp/labels/internal/infrastructure/markup"
)

// Small formats shrink padding and type by this factor
const smallFactor = 0.6

// Font sizes in mm, relative to the content height and clamped to stay legible
const (
	baseFontRatio  = 0.14
	minBaseFontMM  = 1.6
	maxBaseFontMM  = 4.5
	priceFontScale = 1.3
	codeFontScale  = 0.8
	lineHeight     = 1.1
	minBarcodeArea = 0.3
)

// BarcodeTaskAttr marks the barcode placeholder of a label
const BarcodeTaskAttr = "data-barcode-task"

// LabelRenderer builds the markup for one label
type LabelRenderer struct {
	prices *PriceFormatter
	newID  func() string
}

// NewLabelRenderer creates a renderer. A nil formatter uses Spanish euros.
func NewLabelRenderer(prices *PriceFormatter) *LabelRenderer {
	if prices == nil {
		prices, _ = NewPriceFormatter("", "")
	}
	return &LabelRenderer{
		prices: prices,
		newID:  func() string { return "bc-" + uuid.NewString() },
	}
}

// Render builds the label for one cell at pos and, when the barcode field is
// visible, the pending draw task for its placeholder. The small-format
// override is applied here whatever fields the caller passes.
func (r *LabelRenderer) Render(product catalog.Product, format domain.LabelFormat, family domain.PrinterFamily,
	fields domain.FieldSet, cell domain.Cell, pos domain.Point) (*html.Node, *barcode.Task) {

	fields = fields.Effective(format)
	small := format.IsSmall()

	factor := 1.0
	if small {
		factor = smallFactor
	}
	padX := format.ContentPaddingX * factor
	padY := format.ContentPaddingY * factor

	contentW := math.Max(format.WidthMM-2*padX, 0)
	contentH := math.Max(format.HeightMM-2*padY-format.ContentTopSpacing-format.ContentBottomSpacing, 0)

	base := math.Min(math.Max(contentH*baseFontRatio, minBaseFontMM), maxBaseFontMM) * factor
	nameFont := base
	priceFont := base * priceFontScale
	codeFont := base * codeFontScale

	label := markup.Element("div",
		"class", labelClass(small),
		"data-index", fmt.Sprint(cell.Index),
		"data-row", fmt.Sprint(cell.Row),
		"data-col", fmt.Sprint(cell.Col),
		"style", markup.Style(
			"left", markup.MM(pos.X),
			"top", markup.MM(pos.Y),
			"width", markup.MM(format.WidthMM),
			"height", markup.MM(format.HeightMM),
			"padding", fmt.Sprintf("%s %s %s %s",
				markup.MM(padY+format.ContentTopSpacing), markup.MM(padX),
				markup.MM(padY+format.ContentBottomSpacing), markup.MM(padX)),
		),
	)

	textH := 0.0
	if fields.Has(domain.FieldName) {
		markup.Append(label, textLine("name", product.Name, nameFont))
		textH += nameFont * lineHeight
	}
	if fields.Has(domain.FieldPrice) {
		markup.Append(label, textLine("price", r.prices.Format(product.Price), priceFont))
		textH += priceFont * lineHeight
	}

	var task *barcode.Task
	if fields.Has(domain.FieldBarcode) {
		codeH := 0.0
		if fields.Has(domain.FieldCode) {
			codeH = codeFont * lineHeight
		}
		barcodeH := math.Max(contentH-textH-codeH, contentH*minBarcodeArea)

		task = &barcode.Task{
			ID:         r.newID(),
			Code:       strings.TrimSpace(product.Code),
			ShowText:   fields.ShowTextInBarcode(),
			WidthMM:    contentW,
			HeightMM:   barcodeH,
			FontSizeMM: codeFont,
			ShiftMM:    format.BarcodeVerticalShift,
			Continuous: family.IsContinuous(),
		}
		markup.Append(label, markup.Element("div",
			"class", "barcode",
			"id", task.ID,
			BarcodeTaskAttr, task.ID,
			"style", markup.Style("width", markup.MM(contentW), "height", markup.MM(barcodeH)),
		))
	}
	if fields.Has(domain.FieldCode) {
		markup.Append(label, textLine("code", product.Code, codeFont))
	}

	return label, task
}

func labelClass(small bool) string {
	if small {
		return "label label-small"
	}
	return "label"
}

func textLine(class, text string, fontMM float64) *html.Node {
	return markup.Append(
		markup.Element("div", "class", class, "style", markup.Style("font-size", markup.MM(fontMM))),
		markup.Text(text),
	)
}
