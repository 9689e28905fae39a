package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// tuning variables applied to every client
var tuning = map[string]string{
	"tessedit_enable_doc_dict":  "1",
	"preserve_interword_spaces": "0",
}

// TesseractOptions configures the Tesseract recognizer
type TesseractOptions struct {
	// TessdataDir overrides tessdata discovery
	TessdataDir string
	// MinConfidence is the gate in percent; negative disables it
	MinConfidence float64
	Logger        *slog.Logger
}

// Tesseract recognizes text with libtesseract through gosseract. A fresh
// client is created per image.
type Tesseract struct {
	tessdata      string
	osd           bool
	minConfidence float64
	logger        *slog.Logger
	clientFactory func() *gosseract.Client
}

// NewTesseract resolves the tessdata directory once and returns a recognizer
func NewTesseract(opts TesseractOptions) *Tesseract {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tessdata := ResolveTessdata(opts.TessdataDir)
	t := &Tesseract{
		tessdata:      tessdata,
		osd:           HasOSD(tessdata),
		minConfidence: opts.MinConfidence,
		logger:        logger,
		clientFactory: gosseract.NewClient,
	}
	logger.Debug("tesseract configured", "tessdata", tessdata, "osd", t.osd, "min_confidence", opts.MinConfidence)
	return t
}

// Version returns the libtesseract version
func (t *Tesseract) Version() string {
	c := t.clientFactory()
	defer c.Close()
	return c.Version()
}

// Recognize runs OCR on one PNG image. The context is only checked before
// the engine starts.
func (t *Tesseract) Recognize(ctx context.Context, png []byte, dpi int, languages []string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := t.clientFactory()
	defer c.Close()

	if err := t.configure(c, dpi, languages); err != nil {
		return nil, err
	}
	if err := c.SetImageFromBytes(png); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	res := &Result{Text: strings.TrimSpace(text)}
	res.Confidence, res.Words = meanConfidence(c)
	gate(res, t.minConfidence)
	if res.Discarded {
		t.logger.Info("recognized text below confidence threshold",
			"confidence", res.Confidence, "threshold", t.minConfidence, "words", res.Words)
	}
	return res, nil
}

func (t *Tesseract) configure(c *gosseract.Client, dpi int, languages []string) error {
	if t.tessdata != "" {
		if err := c.SetTessdataPrefix(t.tessdata); err != nil {
			return fmt.Errorf("set tessdata: %w", err)
		}
	}
	if len(languages) == 0 {
		languages = []string{DefaultLanguage}
	}
	if err := c.SetLanguage(languages...); err != nil {
		return fmt.Errorf("set languages: %w", err)
	}

	mode := gosseract.PSM_AUTO
	if t.osd {
		mode = gosseract.PSM_AUTO_OSD
	}
	if err := c.SetPageSegMode(mode); err != nil {
		return fmt.Errorf("set page segmentation mode: %w", err)
	}

	if dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(dpi)); err != nil {
			return fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range tuning {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	return nil
}

func meanConfidence(c *gosseract.Client) (float64, int) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0, 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)), len(boxes)
}
