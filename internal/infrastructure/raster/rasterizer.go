// Package raster converts assembled label pages into bitmap images
package raster

import (
	"context"
	"time"
)

// Request describes one page to rasterize
type Request struct {
	// HTML is a complete standalone document holding a single page
	HTML string
	// WidthMM and HeightMM are the physical page size
	WidthMM  float64
	HeightMM float64
	// Scale is the oversampling factor relative to CSS pixels
	Scale float64
	// Background fills transparent areas
	Background string
	// Timeout overrides the default per-page timeout
	Timeout time.Duration
}

// Image is a rasterized page
type Image struct {
	PNG      []byte
	WidthPx  int
	HeightPx int
}

// Rasterizer renders pages one at a time through a single shared surface.
// Implementations are not safe for concurrent page rendering.
type Rasterizer interface {
	// Rasterize renders one page onto the shared surface and captures it
	Rasterize(ctx context.Context, req *Request) (*Image, error)
	// Reset clears the shared surface before the next job reuses it
	Reset(ctx context.Context) error
	// Close releases any resources held by the rasterizer
	Close() error
}

// RenderError represents an error during page rasterization
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rasterization failures
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidHTML   = "INVALID_HTML"
	ErrCodeInvalidSize   = "INVALID_PAGE_SIZE"
	ErrCodeClosed        = "RASTERIZER_CLOSED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// cssPixelsPerMM is the CSS reference resolution, 96 px per inch
const cssPixelsPerMM = 96.0 / 25.4

// MMToCSSPixels converts millimeters to CSS pixels
func MMToCSSPixels(mm float64) float64 {
	return mm * cssPixelsPerMM
}
