package labeling

// Size thresholds below which a format is treated as small
const (
	smallWidthMM  = 30.0
	smallHeightMM = 20.0

	defaultContentPaddingMM = 2.0
)

// LabelFormat is a physical label size/layout template. Values are in millimeters.
// Formats come from the embedded catalog and are never mutated at runtime.
type LabelFormat struct {
	ID     string        `json:"id"`
	Family PrinterFamily `json:"printer_family"`
	Name   string        `json:"name"`

	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`

	// Media size for roll printers; zero means the page is the label itself
	PageWidthMM  float64 `json:"page_width_mm,omitempty"`
	PageHeightMM float64 `json:"page_height_mm,omitempty"`

	Columns int `json:"columns"`
	Rows    int `json:"rows"`
	PerPage int `json:"per_page"`

	MarginX float64 `json:"margin_x"`
	MarginY float64 `json:"margin_y"`

	ContentPaddingX float64 `json:"content_padding_x"`
	ContentPaddingY float64 `json:"content_padding_y"`

	HorizontalSpacing float64 `json:"horizontal_spacing"`
	VerticalSpacing   float64 `json:"vertical_spacing"`

	ContentTopSpacing    float64 `json:"content_top_spacing"`
	ContentBottomSpacing float64 `json:"content_bottom_spacing"`

	BarcodeVerticalShift float64 `json:"barcode_vertical_shift"`
	CenterOffset         float64 `json:"center_offset"`

	VerticalCenter   bool `json:"vertical_center"`
	HorizontalCenter bool `json:"horizontal_center"`

	// Small is the explicit catalog flag; use IsSmall for the effective value
	Small bool `json:"small"`
}

// IsSmall reports whether the label is too small for name and price.
// Explicitly flagged formats are small regardless of size.
func (f LabelFormat) IsSmall() bool {
	return f.Small || f.WidthMM < smallWidthMM || f.HeightMM < smallHeightMM
}

// ContentWidthMM is the usable width inside the content padding
func (f LabelFormat) ContentWidthMM() float64 {
	w := f.WidthMM - 2*f.ContentPaddingX
	if w < 0 {
		return 0
	}
	return w
}

// ContentHeightMM is the usable height inside padding and top/bottom spacing
func (f LabelFormat) ContentHeightMM() float64 {
	h := f.HeightMM - 2*f.ContentPaddingY - f.ContentTopSpacing - f.ContentBottomSpacing
	if h < 0 {
		return 0
	}
	return h
}

// formatRecord is the catalog representation. Pointer fields distinguish
// "not set" from an explicit zero so defaults can be applied.
type formatRecord struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Width        float64  `yaml:"width"`
	Height       float64  `yaml:"height"`
	PageWidth    float64  `yaml:"page_width"`
	PageHeight   float64  `yaml:"page_height"`
	Columns      int      `yaml:"columns"`
	Rows         int      `yaml:"rows"`
	PerPage      int      `yaml:"per_page"`
	MarginX      float64  `yaml:"margin_x"`
	MarginY      float64  `yaml:"margin_y"`
	PaddingX     *float64 `yaml:"padding_x"`
	PaddingY     *float64 `yaml:"padding_y"`
	SpacingX     float64  `yaml:"spacing_x"`
	SpacingY     float64  `yaml:"spacing_y"`
	TopSpacing   float64  `yaml:"top_spacing"`
	BottomSpace  float64  `yaml:"bottom_spacing"`
	BarcodeShift float64  `yaml:"barcode_shift"`
	CenterOffset float64  `yaml:"center_offset"`
	VCenter      bool     `yaml:"vertical_center"`
	HCenter      bool     `yaml:"horizontal_center"`
	Small        bool     `yaml:"small"`
}

// toFormat fills every optional field with its default
func (r formatRecord) toFormat(family PrinterFamily) LabelFormat {
	f := LabelFormat{
		ID:                   r.ID,
		Family:               family,
		Name:                 r.Name,
		WidthMM:              r.Width,
		HeightMM:             r.Height,
		PageWidthMM:          r.PageWidth,
		PageHeightMM:         r.PageHeight,
		Columns:              r.Columns,
		Rows:                 r.Rows,
		PerPage:              r.PerPage,
		MarginX:              r.MarginX,
		MarginY:              r.MarginY,
		ContentPaddingX:      defaultContentPaddingMM,
		ContentPaddingY:      defaultContentPaddingMM,
		HorizontalSpacing:    r.SpacingX,
		VerticalSpacing:      r.SpacingY,
		ContentTopSpacing:    r.TopSpacing,
		ContentBottomSpacing: r.BottomSpace,
		BarcodeVerticalShift: r.BarcodeShift,
		CenterOffset:         r.CenterOffset,
		VerticalCenter:       r.VCenter,
		HorizontalCenter:     r.HCenter,
		Small:                r.Small,
	}
	if r.PaddingX != nil {
		f.ContentPaddingX = *r.PaddingX
	}
	if r.PaddingY != nil {
		f.ContentPaddingY = *r.PaddingY
	}
	if f.Name == "" {
		f.Name = f.ID
	}

	if family.IsContinuous() {
		f.Columns, f.Rows, f.PerPage = 1, 1, 1
		return f
	}
	if f.Columns < 1 {
		f.Columns = 1
	}
	if f.Rows < 1 {
		f.Rows = 1
	}
	if f.PerPage < 1 || f.PerPage > f.Columns*f.Rows {
		f.PerPage = f.Columns * f.Rows
	}
	return f
}
