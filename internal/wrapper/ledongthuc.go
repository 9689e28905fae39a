package wrapper

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// textReader extracts embedded text runs with ledongthuc/pdf
type textReader struct {
	file   *os.File
	reader *pdf.Reader
}

// openText opens path for text extraction. The library panics on some
// malformed inputs; those panics are turned into errors.
func openText(path string) (tr *textReader, err error) {
	defer func() {
		if r := recover(); r != nil {
			tr, err = nil, &WrapperError{Library: LibraryLedongthuc, Op: "open", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return nil, &WrapperError{
			Library: LibraryLedongthuc,
			Op:      "open",
			Err:     fmt.Errorf("failed to open PDF: %w", err),
		}
	}
	return &textReader{file: f, reader: pdfReader}, nil
}

func (t *textReader) pageCount() (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, &WrapperError{Library: LibraryLedongthuc, Op: "page_count", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return t.reader.NumPage(), nil
}

func (t *textReader) pageText(page int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", &WrapperError{Library: LibraryLedongthuc, Op: "text_layer", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := checkPage(LibraryLedongthuc, "text_layer", page, t.reader.NumPage()); err != nil {
		return "", err
	}

	p := t.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}

	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", &WrapperError{
			Library: LibraryLedongthuc,
			Op:      "text_layer",
			Err:     fmt.Errorf("failed to extract text from page %d: %w", page, err),
		}
	}
	return strings.TrimSpace(text), nil
}

func (t *textReader) close() error {
	if t.file != nil {
		return t.file.Close()
	}
	return nil
}
