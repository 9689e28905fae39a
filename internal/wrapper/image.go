package wrapper

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	// Decoders for standalone inputs
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/a3tai/docingest/internal/xfa"
)

// ImageDocument is a standalone raster image, seen as a single page without
// an embedded text layer or form data
type ImageDocument struct {
	path   string
	format string
	width  int
	height int
	closed bool
}

// OpenImage checks that path decodes as a supported image
func OpenImage(path string) (*ImageDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &WrapperError{Library: LibraryImage, Op: "open", Err: err}
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, &WrapperError{Library: LibraryImage, Op: "open", Err: fmt.Errorf("unsupported image: %w", err)}
	}
	return &ImageDocument{path: path, format: format, width: cfg.Width, height: cfg.Height}, nil
}

// Format returns the decoder name, e.g. "jpeg" or "webp"
func (d *ImageDocument) Format() string { return d.format }

// Bounds returns the pixel size of the image
func (d *ImageDocument) Bounds() (width, height int) { return d.width, d.height }

// PageCount is always one
func (d *ImageDocument) PageCount() int { return 1 }

// HasForm is always false
func (d *ImageDocument) HasForm() bool { return false }

// TextLayer is always empty: an image has no embedded text
func (d *ImageDocument) TextLayer(page int) (string, error) {
	if d.closed {
		return "", &WrapperError{Library: LibraryImage, Op: "text_layer", Err: ErrDocumentClosed}
	}
	if err := checkPage(LibraryImage, "text_layer", page, 1); err != nil {
		return "", err
	}
	return "", nil
}

// Render decodes the image and re-encodes it as PNG. The image keeps its own
// resolution; dpi is only recorded on the Raster.
func (d *ImageDocument) Render(ctx context.Context, page, dpi int) (*Raster, error) {
	if d.closed {
		return nil, &WrapperError{Library: LibraryImage, Op: "render", Err: ErrDocumentClosed}
	}
	if err := checkPage(LibraryImage, "render", page, 1); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &WrapperError{Library: LibraryImage, Op: "render", Err: err}
	}

	f, err := os.Open(d.path)
	if err != nil {
		return nil, &WrapperError{Library: LibraryImage, Op: "render", Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &WrapperError{Library: LibraryImage, Op: "render", Err: fmt.Errorf("failed to decode %s: %w", d.format, err)}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &WrapperError{Library: LibraryImage, Op: "render", Err: fmt.Errorf("failed to encode PNG: %w", err)}
	}
	return &Raster{Page: page, DPI: dpi, PNG: buf.Bytes()}, nil
}

// FormXML always returns an empty Blob
func (d *ImageDocument) FormXML() (xfa.Blob, error) { return nil, nil }

// Close marks the document closed
func (d *ImageDocument) Close() error {
	d.closed = true
	return nil
}
