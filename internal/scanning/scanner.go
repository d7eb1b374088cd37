package scanning

import (
	"context"
	"fmt"
	"image"

	"github.com/zombor/bill-extractor/internal/layout"
)

// Page is the OCR output for one rendered page of a document
type Page struct {
	Number int
	Width  float64
	Height float64
	Words  []layout.WordBox
}

// Layout returns the page in the form the layout pipeline consumes
func (p Page) Layout() layout.Page {
	return layout.Page{Width: p.Width, Words: p.Words}
}

// Scanner defines the interface for OCR providers
type Scanner interface {
	// ScanPages renders every page of a document and returns its word boxes
	ScanPages(ctx context.Context, data []byte, contentType string) ([]Page, error)
	// Close closes the scanner and releases resources
	Close() error
}

// pageOCR recognizes the words on one rendered page
type pageOCR func(ctx context.Context, img image.Image) ([]layout.WordBox, error)

// scanEach renders the document and runs ocr over every page in order
func scanEach(ctx context.Context, data []byte, contentType string, ocr pageOCR) ([]Page, error) {
	images, err := renderPages(data, contentType)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		words, err := ocr(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("scanning page %d: %w", i+1, err)
		}
		b := img.Bounds()
		pages = append(pages, Page{
			Number: i + 1,
			Width:  float64(b.Dx()),
			Height: float64(b.Dy()),
			Words:  words,
		})
	}
	return pages, nil
}
