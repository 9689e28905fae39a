// Package pipeline drives one extraction run: the XFA phase once, then the
// selected pages in ascending order, streaming every result as it arrives.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/a3tai/docingest/internal/config"
	"github.com/a3tai/docingest/internal/deadline"
	exterr "github.com/a3tai/docingest/internal/errors"
	"github.com/a3tai/docingest/internal/input"
	"github.com/a3tai/docingest/internal/output"
	"github.com/a3tai/docingest/internal/pagerange"
	"github.com/a3tai/docingest/internal/recognize"
	"github.com/a3tai/docingest/internal/wrapper"
	"github.com/a3tai/docingest/internal/xfa"
)

// DocumentOpener opens a resolved input
type DocumentOpener interface {
	Open(src *input.Source) (wrapper.Document, error)
}

// Controller runs the extraction state machine. It owns the document for the
// duration of Run and closes it on every path.
type Controller struct {
	cfg        config.RunConfig
	opener     DocumentOpener
	recognizer recognize.Recognizer
	expired    func() bool
	logger     *slog.Logger
	state      State
}

// Option customizes a Controller
type Option func(*Controller)

// WithDeadlineCheck injects the boundary check consulted before the XFA
// phase and before each page. By default a deadline.Supervisor started at
// the beginning of Run enforces the configured timeout.
func WithDeadlineCheck(expired func() bool) Option {
	return func(c *Controller) { c.expired = expired }
}

// WithLogger sets the diagnostic logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// NewController creates a controller for one configuration. recognizer may be
// nil when OCR is disabled.
func NewController(cfg config.RunConfig, opener DocumentOpener, recognizer recognize.Recognizer, opts ...Option) *Controller {
	c := &Controller{
		cfg:        cfg,
		opener:     opener,
		recognizer: recognizer,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state
func (c *Controller) State() State { return c.state }

// Run extracts src and writes the protocol to w
func (c *Controller) Run(ctx context.Context, src *input.Source, w io.Writer) RunOutcome {
	c.state = StateInit
	expired := c.expired
	if expired == nil {
		expired = deadline.New(c.cfg.Timeout).Expired
	}

	if err := c.cfg.Validate(); err != nil {
		return c.fail(RunOutcome{}, err)
	}

	doc, err := c.opener.Open(src)
	if err != nil {
		return c.fail(RunOutcome{}, err)
	}
	defer func() {
		if err := doc.Close(); err != nil {
			c.logger.Warn("closing document failed", "error", err)
		}
	}()

	pages, err := pagerange.Resolve(c.cfg.PageRange, doc.PageCount())
	if err != nil {
		return c.fail(RunOutcome{}, err)
	}
	outcome := RunOutcome{PagesSelected: len(pages)}
	c.logger.Info("run started", "pages", len(pages), "page_count", doc.PageCount(),
		"mode", c.cfg.Mode, "xfa", c.cfg.XFA, "timeout", c.cfg.Timeout)

	out := output.New(w)
	defer func() {
		if err := out.Close(); err != nil {
			c.logger.Warn("flushing output failed", "error", err)
		}
	}()

	if c.cfg.XFA != xfa.ModeOff {
		c.state = StateXfaPhase
		if reason, stop := c.shouldStop(ctx, expired); stop {
			return c.abort(outcome, reason)
		}
		res := c.runXFA(doc, out)
		if res.Kind == StageHardFail {
			return c.fail(outcome, res.Err)
		}
		outcome.XFAWritten = res.Payload != ""
	}

	c.state = StatePageLoop
	for _, page := range pages {
		if reason, stop := c.shouldStop(ctx, expired); stop {
			return c.abort(outcome, reason)
		}
		soft, err := c.runPage(ctx, doc, page, out)
		outcome.SoftFailures += soft
		if err != nil {
			return c.fail(outcome, err)
		}
		outcome.PagesWritten++
	}

	c.state = StateDone
	outcome.Status = Completed
	c.logger.Info("run completed", "pages", outcome.PagesWritten, "soft_failures", outcome.SoftFailures)
	return outcome
}

func (c *Controller) shouldStop(ctx context.Context, expired func() bool) (string, bool) {
	if expired() {
		return ReasonTimeout, true
	}
	if ctx.Err() != nil {
		return ReasonCanceled, true
	}
	return "", false
}

// runXFA emits the XFA section when the document carries form data. The
// result payload is non-empty when a section was written.
func (c *Controller) runXFA(doc wrapper.Document, out *output.Formatter) StageResult {
	start := time.Now()
	if !doc.HasForm() {
		c.logger.Info("no XFA form data")
		return okResult("")
	}

	blob, err := doc.FormXML()
	if err != nil {
		if c.cfg.XFA == xfa.ModeRaw {
			c.logger.Warn("XFA streams unreadable, section omitted", "error", err)
			return okResult("")
		}
		return failed(exterr.ErrorTypeXfaParse, "cannot read XFA streams", err)
	}

	res, err := xfa.Transform(blob, c.cfg.XFA, c.cfg.XFAOptions())
	if err != nil {
		return failed(exterr.ErrorTypeXfaParse, "cannot transform XFA", err)
	}
	if !res.Present {
		c.logger.Info("XFA entry holds no data")
		return okResult("")
	}

	if err := out.WriteXFA(res.Payload); err != nil {
		return failed(exterr.ErrorTypeUnknown, "write XFA section", err)
	}
	attrs := []any{"mode", c.cfg.XFA, "bytes", len(res.Payload), "elapsed", time.Since(start)}
	if res.Record != nil {
		attrs = append(attrs, "fields", res.Record.Len())
	}
	c.logger.Info("XFA section written", attrs...)
	return okResult(string(res.Payload))
}

// runPage emits one page section and returns how many layers failed softly.
// The section is always closed before returning.
func (c *Controller) runPage(ctx context.Context, doc wrapper.Document, page int, out *output.Formatter) (int, error) {
	if err := out.BeginPage(page); err != nil {
		return 0, exterr.Wrap(exterr.ErrorTypeUnknown, "write page section", err)
	}

	soft := 0
	if c.cfg.TextEnabled() {
		res := c.textStage(doc, page)
		if err := c.emit(out, output.LayerText, page, res); err != nil {
			return soft, err
		}
		if res.Kind == StageSoftFail {
			soft++
		}
	}
	if c.cfg.OCREnabled() {
		res := c.ocrStage(ctx, doc, page)
		if err := c.emit(out, output.LayerOCR, page, res); err != nil {
			return soft, err
		}
		if res.Kind == StageSoftFail {
			soft++
		}
	}

	if err := out.EndPage(); err != nil {
		return soft, exterr.Wrap(exterr.ErrorTypeUnknown, "write page section", err)
	}
	return soft, nil
}

func (c *Controller) emit(out *output.Formatter, layer output.Layer, page int, res StageResult) error {
	var err error
	switch res.Kind {
	case StageOK:
		err = out.WriteLayer(layer, res.Payload)
	case StageSoftFail:
		c.logger.Warn("layer failed", "page", page, "layer", layer, "error", res.Err)
		err = out.WriteLayerError(layer, res.Reason())
	default:
		return res.Err
	}
	if err != nil {
		return exterr.Wrap(exterr.ErrorTypeUnknown, "write page layer", err)
	}
	return nil
}

func (c *Controller) textStage(doc wrapper.Document, page int) StageResult {
	start := time.Now()
	text, err := doc.TextLayer(page)
	if err != nil {
		return failed(exterr.ErrorTypePageText, "text extraction failed", err)
	}
	c.logger.Debug("text layer", "page", page, "chars", len(text), "elapsed", time.Since(start))
	return okResult(text)
}

func (c *Controller) ocrStage(ctx context.Context, doc wrapper.Document, page int) StageResult {
	if c.recognizer == nil {
		return failed(exterr.ErrorTypePageRecognition, "recognition failed", errors.New("no recognizer configured"))
	}

	start := time.Now()
	raster, err := doc.Render(ctx, page, c.cfg.DPI)
	if err != nil {
		return failed(exterr.ErrorTypePageRender, "render failed", err)
	}
	rendered := time.Since(start)

	res, err := c.recognizer.Recognize(ctx, raster.PNG, raster.DPI, recognize.ParseLanguages(c.cfg.Lang))
	if err != nil {
		return failed(exterr.ErrorTypePageRecognition, "recognition failed", err)
	}
	c.logger.Debug("recognition layer", "page", page, "chars", len(res.Text), "confidence", res.Confidence,
		"discarded", res.Discarded, "render", rendered, "elapsed", time.Since(start))
	return okResult(res.Text)
}

func (c *Controller) abort(outcome RunOutcome, reason string) RunOutcome {
	c.state = StateAborted
	outcome.Status = CompletedPartial
	outcome.Reason = reason
	c.logger.Info("run stopped early", "reason", reason, "pages", outcome.PagesWritten, "selected", outcome.PagesSelected)
	return outcome
}

func (c *Controller) fail(outcome RunOutcome, err error) RunOutcome {
	from := c.state
	c.state = StateFailed
	outcome.Status = Failed
	if exterr.TypeOf(err) == exterr.ErrorTypeUnknown {
		err = fmt.Errorf("extraction failed: %w", err)
	}
	outcome.Err = err
	c.logger.Error("run failed", "state", from, "error", err)
	return outcome
}
