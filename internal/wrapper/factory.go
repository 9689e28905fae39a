package wrapper

import (
	"fmt"
	"log/slog"

	exterr "github.com/a3tai/docingest/internal/errors"
	"github.com/a3tai/docingest/internal/input"
)

// Opener creates Documents for resolved inputs
type Opener struct {
	rasterizer Rasterizer
	logger     *slog.Logger
}

// NewOpener creates an opener. A nil rasterizer uses pdftoppm from PATH.
func NewOpener(rasterizer Rasterizer, logger *slog.Logger) *Opener {
	if rasterizer == nil {
		rasterizer = &Poppler{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Opener{rasterizer: rasterizer, logger: logger}
}

// Open picks the backend from the sniffed format. Failures are classified as
// DOCUMENT_OPEN errors.
func (o *Opener) Open(src *input.Source) (Document, error) {
	switch {
	case src.Format == input.FormatPDF:
		doc, err := OpenPDF(src.Path, o.rasterizer, o.logger)
		if err != nil {
			return nil, exterr.Wrap(exterr.ErrorTypeDocumentOpen, "cannot open document", err)
		}
		o.logger.Debug("opened PDF", "path", src.Path, "pages", doc.PageCount(), "form", doc.HasForm())
		return doc, nil
	case src.Format.IsImage():
		doc, err := OpenImage(src.Path)
		if err != nil {
			return nil, exterr.Wrap(exterr.ErrorTypeDocumentOpen, "cannot open image", err)
		}
		w, h := doc.Bounds()
		o.logger.Debug("opened image", "path", src.Path, "format", doc.Format(), "width", w, "height", h)
		return doc, nil
	default:
		return nil, exterr.Wrap(exterr.ErrorTypeDocumentOpen, "unsupported input format",
			fmt.Errorf("%s is neither a PDF nor a supported image", displayName(src)))
	}
}

func displayName(src *input.Source) string {
	if src.Stdin {
		return "stdin"
	}
	return src.Path
}
