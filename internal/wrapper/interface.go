// Package wrapper opens source documents behind one interface, hiding which
// library answers each question: pdfcpu for structure and form streams,
// ledongthuc/pdf for the embedded text layer, poppler for rasterization,
// and golang.org/x/image for standalone images.
package wrapper

import (
	"context"
	"fmt"

	"github.com/a3tai/docingest/internal/xfa"
)

// Document is an opened source, owned by one run and closed by it
type Document interface {
	// PageCount returns the number of pages; a standalone image has one
	PageCount() int
	// HasForm reports whether the document carries XFA form data
	HasForm() bool
	// TextLayer returns the embedded text of a 1-based page
	TextLayer(page int) (string, error)
	// Render rasterizes a 1-based page at the given resolution
	Render(ctx context.Context, page, dpi int) (*Raster, error)
	// FormXML returns the XFA streams; an empty Blob means no form data
	FormXML() (xfa.Blob, error)
	// Close releases the document
	Close() error
}

// Raster is a rendered page, always PNG encoded
type Raster struct {
	Page int
	DPI  int
	PNG  []byte
}

// LibraryType names the backend that produced an error
type LibraryType string

const (
	LibraryPDFCPU     LibraryType = "pdfcpu"
	LibraryLedongthuc LibraryType = "ledongthuc"
	LibraryPoppler    LibraryType = "poppler"
	LibraryImage      LibraryType = "image"
)

// WrapperError is a backend failure
type WrapperError struct {
	Library LibraryType `json:"library"`
	Op      string      `json:"operation"`
	Err     error       `json:"error"`
}

func (e *WrapperError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Library, e.Op, e.Err)
}

func (e *WrapperError) Unwrap() error {
	return e.Err
}

// Common error variables
var (
	ErrDocumentClosed = fmt.Errorf("document is closed")
	ErrInvalidPage    = fmt.Errorf("invalid page number")
)

func checkPage(lib LibraryType, op string, page, count int) error {
	if page < 1 || page > count {
		return &WrapperError{
			Library: lib,
			Op:      op,
			Err:     fmt.Errorf("%w %d (document has %d pages)", ErrInvalidPage, page, count),
		}
	}
	return nil
}
