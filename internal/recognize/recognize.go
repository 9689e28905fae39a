// Package recognize runs optical character recognition on rendered pages.
package recognize

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// DefaultLanguage is the Tesseract language used when none is configured
const DefaultLanguage = "eng"

// DefaultMinConfidence is the mean word confidence, in percent, below which
// recognized text is discarded
const DefaultMinConfidence = 60.0

// Result is the recognized text of one image
type Result struct {
	Text string
	// Confidence is the mean word confidence in percent
	Confidence float64
	Words      int
	// Discarded is true when Text was dropped by the confidence gate
	Discarded bool
}

// Recognizer converts a PNG image into text. Implementations may block for a
// long time and are not interrupted once started.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte, dpi int, languages []string) (*Result, error)
}

// ParseLanguages splits a "eng+deu" style list into codes. An empty list
// yields DefaultLanguage.
func ParseLanguages(s string) []string {
	var langs []string
	for _, code := range strings.Split(s, "+") {
		if code = strings.TrimSpace(code); code != "" {
			langs = append(langs, code)
		}
	}
	if len(langs) == 0 {
		return []string{DefaultLanguage}
	}
	return langs
}

// ResolveTessdata picks the tessdata directory: the explicit one if set, then
// a tessdata directory next to the executable, then one in the working
// directory. An empty result leaves the choice to the library.
func ResolveTessdata(explicit string) string {
	if explicit != "" {
		return explicit
	}
	var candidates []string
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "tessdata"))
	}
	candidates = append(candidates, "tessdata")
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}

// HasOSD reports whether the orientation and script model is installed in dir
func HasOSD(dir string) bool {
	if dir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(dir, "osd.traineddata"))
	return err == nil
}

// gate applies the confidence threshold to a recognition result
func gate(res *Result, minConfidence float64) *Result {
	if res.Words > 0 && res.Confidence < minConfidence {
		res.Text = ""
		res.Discarded = true
	}
	return res
}
