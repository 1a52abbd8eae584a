package labeling

import (
	"time"

	"github.com/erp/labels/internal/domain/catalog"
	domain "github.com/erp/labels/internal/domain/labeling"
)

// JobRequest describes one print or PDF action. The product comes inline or
// by ID from the product repository.
type JobRequest struct {
	Product   *catalog.Product `json:"product,omitempty"`
	ProductID string           `json:"product_id,omitempty"`
	Family    string           `json:"printer_family"`
	FormatID  string           `json:"format_id"`
	Quantity  int              `json:"quantity" binding:"required,min=1"`
	Fields    []string         `json:"fields,omitempty"`
}

// FamilyResponse describes a printer family
type FamilyResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Continuous  bool   `json:"continuous"`
	Formats     int    `json:"formats"`
}

// FormatDetailResponse is a resolved format with what the printer makes of it
type FormatDetailResponse struct {
	Format      domain.LabelFormat    `json:"format"`
	Profile     domain.PrinterProfile `json:"profile"`
	Calibration domain.Correction     `json:"calibration"`
	Small       bool                  `json:"small"`
}

// PlacedLabel is one label of a layout dry run
type PlacedLabel struct {
	domain.Cell
	X float64 `json:"x_mm"`
	Y float64 `json:"y_mm"`
}

// PageResponse lists the labels placed on one page
type PageResponse struct {
	Index  int           `json:"index"`
	Labels []PlacedLabel `json:"labels"`
}

// LayoutResponse is the result of a layout dry run
type LayoutResponse struct {
	Format   domain.LabelFormat    `json:"format"`
	Profile  domain.PrinterProfile `json:"profile"`
	Fields   []string              `json:"fields"`
	Quantity int                   `json:"quantity"`
	Pages    []PageResponse        `json:"pages"`
	Filename string                `json:"filename"`
}

// PrintDocument is an assembled print document
type PrintDocument struct {
	JobID  string
	Title  string
	HTML   []byte
	Pages  int
	Labels int
	// BarcodeErrors counts labels showing the invalid-code placeholder
	BarcodeErrors int
}

// PrintResult is returned when a print session was opened
type PrintResult struct {
	JobID         string    `json:"job_id"`
	SessionID     string    `json:"session_id"`
	URL           string    `json:"url"`
	Pages         int       `json:"pages"`
	Labels        int       `json:"labels"`
	BarcodeErrors int       `json:"barcode_errors"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// PDFResult is a finished PDF
type PDFResult struct {
	JobID        string
	Filename     string
	Data         []byte
	Pages        int
	SkippedPages []int
	// ArchiveURL is set when the document was archived and the store exposes a URL
	ArchiveURL string
}

// StateResponse reports the assembler's job state
type StateResponse struct {
	State       domain.JobState `json:"state"`
	Busy        bool            `json:"busy"`
	LastOutcome domain.JobState `json:"last_outcome,omitempty"`
	LastJobID   string          `json:"last_job_id,omitempty"`
}
