package wrapper

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRenderer is the poppler rasterizer executable
const DefaultRenderer = "pdftoppm"

// Rasterizer renders one page of a PDF file to PNG
type Rasterizer interface {
	Render(ctx context.Context, path string, page, dpi int) (*Raster, error)
}

// Poppler rasterizes pages by running pdftoppm
type Poppler struct {
	// Binary is the executable name or path; empty uses DefaultRenderer
	Binary string
}

// Available reports whether the executable can be found
func (p *Poppler) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

func (p *Poppler) binary() string {
	if p.Binary == "" {
		return DefaultRenderer
	}
	return p.Binary
}

// Render runs pdftoppm for a single page into a scratch directory
func (p *Poppler) Render(ctx context.Context, path string, page, dpi int) (*Raster, error) {
	tmpDir, err := os.MkdirTemp("", "docingest-page-*")
	if err != nil {
		return nil, &WrapperError{Library: LibraryPoppler, Op: "render", Err: fmt.Errorf("failed to create temp dir: %w", err)}
	}
	defer os.RemoveAll(tmpDir)

	// -singlefile writes <prefix>.png without a page number suffix
	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, p.binary(),
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(dpi),
		"-singlefile",
		path,
		outputPrefix,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, &WrapperError{Library: LibraryPoppler, Op: "render", Err: fmt.Errorf("%s failed: %w", p.binary(), err)}
		}
		return nil, &WrapperError{Library: LibraryPoppler, Op: "render", Err: fmt.Errorf("%s failed: %w (%s)", p.binary(), err, msg)}
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, &WrapperError{Library: LibraryPoppler, Op: "render", Err: fmt.Errorf("no output for page %d: %w", page, err)}
	}
	return &Raster{Page: page, DPI: dpi, PNG: data}, nil
}
