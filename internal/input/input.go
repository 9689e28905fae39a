// Package input acquires the document to extract: a file path, or standard
// input spilled to a temporary file so that every reader gets a seekable path.
package input

import (
	"bytes"
	"fmt"
	"io"
	"os"

	exterr "github.com/a3tai/docingest/internal/errors"
)

// StdinArg is the file argument that selects standard input
const StdinArg = "-"

// DefaultMaxSize is the input size limit used when none is configured
const DefaultMaxSize int64 = 100 * 1024 * 1024 // 100MB

// Format is the container format detected from the leading bytes
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatPDF     Format = "pdf"
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatTIFF    Format = "tiff"
	FormatBMP     Format = "bmp"
	FormatWebP    Format = "webp"
)

// IsImage reports whether the format is a standalone raster image
func (f Format) IsImage() bool {
	switch f {
	case FormatPNG, FormatJPEG, FormatTIFF, FormatBMP, FormatWebP:
		return true
	default:
		return false
	}
}

// Sniff detects the format from the first bytes of a file
func Sniff(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, []byte("%PDF-")):
		return FormatPDF
	case bytes.HasPrefix(header, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	case bytes.HasPrefix(header, []byte{0xFF, 0xD8, 0xFF}):
		return FormatJPEG
	case bytes.HasPrefix(header, []byte("II*\x00")), bytes.HasPrefix(header, []byte("MM\x00*")):
		return FormatTIFF
	case bytes.HasPrefix(header, []byte("BM")):
		return FormatBMP
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WEBP")):
		return FormatWebP
	}
	// Some producers put junk before the header; readers accept it within
	// the first kilobyte.
	if i := bytes.Index(header, []byte("%PDF-")); i >= 0 && i < 1024 {
		return FormatPDF
	}
	return FormatUnknown
}

// Source is an input ready to be opened
type Source struct {
	Path   string
	Format Format
	Size   int64
	// Stdin is true when Path is a temporary copy of standard input
	Stdin bool
}

// Close removes the temporary copy of standard input, if any
func (s *Source) Close() error {
	if !s.Stdin {
		return nil
	}
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stdin spill: %w", err)
	}
	return nil
}

// Resolver validates file inputs and spills standard input
type Resolver struct {
	maxSize int64
	stdin   io.Reader
	tempDir string
}

// NewResolver creates a resolver enforcing maxSize bytes (0 uses DefaultMaxSize)
func NewResolver(maxSize int64) *Resolver {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Resolver{maxSize: maxSize, stdin: os.Stdin}
}

// WithStdin replaces the standard input reader
func (r *Resolver) WithStdin(stdin io.Reader) *Resolver {
	r.stdin = stdin
	return r
}

// WithTempDir sets where standard input is spilled; empty uses os.TempDir
func (r *Resolver) WithTempDir(dir string) *Resolver {
	r.tempDir = dir
	return r
}

// Resolve turns the file argument into a Source. An empty argument or "-"
// reads standard input. The caller must Close the Source.
func (r *Resolver) Resolve(arg string) (*Source, error) {
	if arg == "" || arg == StdinArg {
		return r.spillStdin()
	}
	return r.resolveFile(arg)
}

func (r *Resolver) resolveFile(path string) (*Source, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, exterr.Newf(exterr.ErrorTypeInput, "file does not exist: %s", path)
	}
	if err != nil {
		return nil, exterr.Wrap(exterr.ErrorTypeInput, "cannot access file", err).WithContext(path)
	}
	if info.IsDir() {
		return nil, exterr.Newf(exterr.ErrorTypeInput, "path is a directory, not a file: %s", path)
	}
	if err := r.checkSize(info.Size(), path); err != nil {
		return nil, err
	}

	format, err := sniffFile(path)
	if err != nil {
		return nil, err
	}
	return &Source{Path: path, Format: format, Size: info.Size()}, nil
}

func (r *Resolver) spillStdin() (*Source, error) {
	tmp, err := os.CreateTemp(r.tempDir, "docingest-stdin-*")
	if err != nil {
		return nil, exterr.Wrap(exterr.ErrorTypeInput, "cannot create temporary file for stdin", err)
	}
	src := &Source{Path: tmp.Name(), Stdin: true}

	n, copyErr := io.Copy(tmp, io.LimitReader(r.stdin, r.maxSize+1))
	closeErr := tmp.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = src.Close()
		return nil, exterr.Wrap(exterr.ErrorTypeInput, "cannot read stdin", copyErr)
	}
	if err := r.checkSize(n, "stdin"); err != nil {
		_ = src.Close()
		return nil, err
	}

	src.Size = n
	if src.Format, err = sniffFile(src.Path); err != nil {
		_ = src.Close()
		return nil, err
	}
	return src, nil
}

func (r *Resolver) checkSize(size int64, name string) error {
	if size == 0 {
		return exterr.Newf(exterr.ErrorTypeInput, "input is empty: %s", name)
	}
	if size > r.maxSize {
		return exterr.Newf(exterr.ErrorTypeInput, "input too large: %s exceeds %d bytes", name, r.maxSize)
	}
	return nil
}

func sniffFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, exterr.Wrap(exterr.ErrorTypeInput, "cannot open input", err).WithContext(path)
	}
	defer f.Close()

	header := make([]byte, 1024)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, exterr.Wrap(exterr.ErrorTypeInput, "cannot read input", err).WithContext(path)
	}
	return Sniff(header[:n]), nil
}
