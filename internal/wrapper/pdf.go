package wrapper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/a3tai/docingest/internal/xfa"
)

// PDFDocument combines the backends for a PDF file. Structure comes from
// pdfcpu when it can read the file, with ledongthuc/pdf as the fallback for
// the page count.
type PDFDocument struct {
	path       string
	structure  *structureReader
	text       *textReader
	textErr    error
	rasterizer Rasterizer
	pages      int
	closed     bool
}

// OpenPDF opens path with every backend that accepts it. The open fails only
// when no backend can determine the page count.
func OpenPDF(path string, rasterizer Rasterizer, logger *slog.Logger) (*PDFDocument, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &PDFDocument{path: path, rasterizer: rasterizer}

	structure, structErr := openStructure(path)
	if structErr != nil {
		logger.Warn("pdfcpu could not read document", "path", path, "error", structErr)
	} else {
		d.structure = structure
		d.pages = structure.pageCount()
	}

	d.text, d.textErr = openText(path)
	if d.textErr != nil {
		logger.Warn("text layer unavailable", "path", path, "error", d.textErr)
	}

	if d.structure == nil {
		if d.text == nil {
			return nil, fmt.Errorf("cannot open PDF: %w", structErr)
		}
		n, err := d.text.pageCount()
		if err != nil {
			_ = d.text.close()
			return nil, fmt.Errorf("cannot open PDF: %w", err)
		}
		d.pages = n
	}
	return d, nil
}

// PageCount returns the number of pages
func (d *PDFDocument) PageCount() int {
	return d.pages
}

// HasForm reports whether the AcroForm dictionary has an XFA entry
func (d *PDFDocument) HasForm() bool {
	return !d.closed && d.structure != nil && d.structure.hasXFA()
}

// TextLayer returns the embedded text of a page
func (d *PDFDocument) TextLayer(page int) (string, error) {
	if d.closed {
		return "", &WrapperError{Library: LibraryLedongthuc, Op: "text_layer", Err: ErrDocumentClosed}
	}
	if d.text == nil {
		return "", d.textErr
	}
	return d.text.pageText(page)
}

// Render rasterizes a page
func (d *PDFDocument) Render(ctx context.Context, page, dpi int) (*Raster, error) {
	if d.closed {
		return nil, &WrapperError{Library: LibraryPoppler, Op: "render", Err: ErrDocumentClosed}
	}
	if err := checkPage(LibraryPoppler, "render", page, d.pages); err != nil {
		return nil, err
	}
	if d.rasterizer == nil {
		return nil, &WrapperError{Library: LibraryPoppler, Op: "render", Err: fmt.Errorf("no rasterizer configured")}
	}
	return d.rasterizer.Render(ctx, d.path, page, dpi)
}

// FormXML returns the XFA packets, or an empty Blob without form data
func (d *PDFDocument) FormXML() (xfa.Blob, error) {
	if d.closed {
		return nil, &WrapperError{Library: LibraryPDFCPU, Op: "form_xml", Err: ErrDocumentClosed}
	}
	if d.structure == nil {
		return nil, nil
	}
	return d.structure.xfaStreams()
}

// Close releases the file handles. It is safe to call more than once.
func (d *PDFDocument) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.structure = nil
	if d.text != nil {
		return d.text.close()
	}
	return nil
}
