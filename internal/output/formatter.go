// Package output writes the line-oriented extraction protocol: an optional
// XFA section followed by one section per page, each wrapped in marker lines.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Layer names a page subsection
type Layer string

const (
	// LayerText is the embedded text layer
	LayerText Layer = "TEXT"
	// LayerOCR is the recognized text of the rendered page
	LayerOCR Layer = "OCR"
)

// Formatter streams sections to w in a single pass. A section must be closed
// before the next one opens; every closed top-level section is flushed.
//
// The first write error is sticky: later calls return it without writing.
type Formatter struct {
	w        *bufio.Writer
	sections int
	page     int
	layers   int
	err      error
}

// New creates a Formatter writing to w
func New(w io.Writer) *Formatter {
	return &Formatter{w: bufio.NewWriter(w)}
}

// Sections returns how many top-level sections have been closed
func (f *Formatter) Sections() int { return f.sections }

// InPage reports whether a page section is open
func (f *Formatter) InPage() bool { return f.page > 0 }

// WriteXFA writes the XFA section. It must come before any page.
func (f *Formatter) WriteXFA(payload []byte) error {
	if f.InPage() || f.sections > 0 {
		return fmt.Errorf("xfa section must be the first section")
	}
	f.line("[[XFA:BEGIN]]")
	f.payload(string(payload))
	f.line("[[XFA:END]]")
	f.sections++
	return f.Flush()
}

// BeginPage opens the section of a 1-based page
func (f *Formatter) BeginPage(page int) error {
	if f.InPage() {
		return fmt.Errorf("page %d still open when opening page %d", f.page, page)
	}
	if page < 1 {
		return fmt.Errorf("invalid page number %d", page)
	}
	if f.sections > 0 {
		f.blank()
	}
	f.page = page
	f.layers = 0
	f.line(fmt.Sprintf("[[PAGE %d:BEGIN]]", page))
	return f.err
}

// WriteLayer writes one subsection of the open page. An empty payload yields
// the begin marker directly followed by the end marker.
func (f *Formatter) WriteLayer(layer Layer, payload string) error {
	if err := f.beginLayer(layer); err != nil {
		return err
	}
	f.line(fmt.Sprintf("[[%s:BEGIN]]", layer))
	f.payload(payload)
	f.line(fmt.Sprintf("[[%s:END]]", layer))
	return f.err
}

// WriteLayerError marks a layer that failed, in place of its subsection
func (f *Formatter) WriteLayerError(layer Layer, reason string) error {
	if err := f.beginLayer(layer); err != nil {
		return err
	}
	reason = strings.Join(strings.Fields(reason), " ")
	f.line(fmt.Sprintf("[[%s:ERROR]] %s", layer, reason))
	return f.err
}

// EndPage closes the open page section and flushes
func (f *Formatter) EndPage() error {
	if !f.InPage() {
		return fmt.Errorf("no page section open")
	}
	f.line(fmt.Sprintf("[[PAGE %d:END]]", f.page))
	f.page = 0
	f.sections++
	return f.Flush()
}

// Close terminates any open page section and flushes, so the output stays
// well-formed on every exit path.
func (f *Formatter) Close() error {
	if f.InPage() {
		return f.EndPage()
	}
	return f.Flush()
}

// Flush writes buffered output to the underlying writer
func (f *Formatter) Flush() error {
	if f.err != nil {
		return f.err
	}
	f.err = f.w.Flush()
	return f.err
}

func (f *Formatter) beginLayer(layer Layer) error {
	if !f.InPage() {
		return fmt.Errorf("%s layer outside of a page section", layer)
	}
	if f.layers > 0 {
		f.blank()
	}
	f.layers++
	return f.err
}

func (f *Formatter) payload(s string) {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return
	}
	f.line(s)
}

func (f *Formatter) line(s string) {
	if f.err != nil {
		return
	}
	if _, err := f.w.WriteString(s); err != nil {
		f.err = err
		return
	}
	f.err = f.w.WriteByte('\n')
}

func (f *Formatter) blank() {
	f.line("")
}
