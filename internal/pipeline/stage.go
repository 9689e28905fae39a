package pipeline

import (
	exterr "github.com/a3tai/docingest/internal/errors"
)

// StageKind classifies the outcome of one unit of work
type StageKind int

const (
	// StageOK carries a payload to emit
	StageOK StageKind = iota
	// StageSoftFail is recorded inline and the run continues
	StageSoftFail
	// StageHardFail ends the run
	StageHardFail
)

func (k StageKind) String() string {
	switch k {
	case StageOK:
		return "ok"
	case StageSoftFail:
		return "soft_fail"
	case StageHardFail:
		return "hard_fail"
	default:
		return "unknown"
	}
}

// StageResult is the tagged outcome of a stage
type StageResult struct {
	Kind    StageKind
	Payload string
	Err     error
}

func okResult(payload string) StageResult {
	return StageResult{Kind: StageOK, Payload: payload}
}

// failed wraps err with errorType unless it is already classified, then
// picks soft or hard failure from the type's recoverability.
func failed(errorType exterr.ErrorType, message string, err error) StageResult {
	if exterr.TypeOf(err) == exterr.ErrorTypeUnknown {
		err = exterr.Wrap(errorType, message, err)
	}
	if exterr.TypeOf(err).IsRecoverable() {
		return StageResult{Kind: StageSoftFail, Err: err}
	}
	return StageResult{Kind: StageHardFail, Err: err}
}

// Reason returns the message written in place of a failed layer
func (r StageResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
