package xfa

import (
	"fmt"

	exterr "github.com/a3tai/docingest/internal/errors"
)

// Options tunes the clean transform
type Options struct {
	// Prune is the bookkeeping table; nil uses DefaultPruneTable
	Prune *PruneTable
	// Separator joins key segments; empty uses DotSeparator
	Separator string
}

// Result is the outcome of a transform. Present is false when the document
// carries no form data, in which case no XFA section is written at all.
type Result struct {
	Mode    Mode
	Present bool
	Payload []byte
	// Record is set in clean mode only
	Record *Record
}

// Transform converts blob according to mode. Parse failures are returned as
// XFA_PARSE errors; raw mode never parses and so never fails.
func Transform(blob Blob, mode Mode, opts Options) (Result, error) {
	res := Result{Mode: mode}
	if mode == ModeOff || blob.Empty() {
		return res, nil
	}
	res.Present = true

	data := blob.Concat()
	if mode == ModeRaw {
		res.Payload = data
		return res, nil
	}

	doc, err := Parse(data)
	if err != nil {
		return Result{Mode: mode}, exterr.Wrap(exterr.ErrorTypeXfaParse, "malformed form XML", err)
	}

	switch mode {
	case ModeFull:
		res.Payload, err = encodeIndented(toFullJSON(doc))
	case ModeClean:
		c := &cleaner{table: opts.Prune, separator: opts.Separator}
		if c.table == nil {
			c.table = DefaultPruneTable()
		}
		if c.separator == "" {
			c.separator = DotSeparator
		}
		res.Record = c.clean(doc)
		res.Payload, err = encodeIndented(res.Record)
	default:
		return Result{Mode: mode}, exterr.Newf(exterr.ErrorTypeConfig, "unknown XFA mode %q", mode)
	}
	if err != nil {
		return Result{Mode: mode}, fmt.Errorf("encode %s payload: %w", mode, err)
	}
	return res, nil
}
