// Package pdf writes rasterized label pages into a PDF with go-pdf/fpdf
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// Options describes the document page geometry in millimeters
type Options struct {
	WidthMM   float64
	HeightMM  float64
	Landscape bool
	Title     string
	Creator   string
}

// Document is a paginated PDF where every page is one full-bleed image
type Document struct {
	pdf     *fpdf.Fpdf
	opts    Options
	pages   int
	written bool
}

// NewDocument creates an empty document
func NewDocument(opts Options) (*Document, error) {
	if opts.WidthMM <= 0 || opts.HeightMM <= 0 {
		return nil, fmt.Errorf("invalid page size %.1fx%.1fmm", opts.WidthMM, opts.HeightMM)
	}

	// fpdf swaps the size for landscape, hand it the portrait form
	orientation := "P"
	size := fpdf.SizeType{Wd: opts.WidthMM, Ht: opts.HeightMM}
	if opts.Landscape {
		orientation = "L"
		size = fpdf.SizeType{Wd: opts.HeightMM, Ht: opts.WidthMM}
	}

	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "mm",
		Size:           size,
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCompression(true)
	if opts.Title != "" {
		doc.SetTitle(opts.Title, true)
	}
	if opts.Creator != "" {
		doc.SetCreator(opts.Creator, true)
	}

	return &Document{pdf: doc, opts: opts}, nil
}

// AddPageImage appends a page covered edge to edge by a PNG image
func (d *Document) AddPageImage(pngData []byte) error {
	if d.written {
		return errors.New("document already written")
	}
	if len(pngData) == 0 {
		return errors.New("empty page image")
	}

	name := fmt.Sprintf("page-%d", d.pages)
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}

	// fpdf keeps the first error for good, so an image is parsed in a scratch
	// document before the real one sees it
	scratch := fpdf.New("P", "mm", "A4", "")
	scratch.RegisterImageOptionsReader(name, opts, bytes.NewReader(pngData))
	if err := scratch.Error(); err != nil {
		return fmt.Errorf("invalid page image: %w", err)
	}

	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(pngData))
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("register page image: %w", err)
	}

	d.pdf.AddPage()
	w, h := d.pdf.GetPageSize()
	d.pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("place page image: %w", err)
	}
	d.pages++
	return nil
}

// Pages returns the number of pages added so far
func (d *Document) Pages() int {
	return d.pages
}

// Write finalizes the document. It can only be called once.
func (d *Document) Write(w io.Writer) error {
	if d.written {
		return errors.New("document already written")
	}
	if d.pages == 0 {
		return errors.New("document has no pages")
	}
	d.written = true
	if err := d.pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// Bytes finalizes the document into memory
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
