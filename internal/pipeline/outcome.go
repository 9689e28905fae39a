package pipeline

import (
	"fmt"

	exterr "github.com/a3tai/docingest/internal/errors"
)

// State is a step of the controller's state machine
type State int

const (
	StateInit State = iota
	StateXfaPhase
	StatePageLoop
	StateDone
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateXfaPhase:
		return "xfa"
	case StatePageLoop:
		return "page_loop"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is the terminal status of a run
type Status int

const (
	// Completed means every selected page was processed
	Completed Status = iota
	// CompletedPartial means the deadline stopped the run at a page boundary
	CompletedPartial
	// Failed means a fatal error ended the run
	Failed
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case CompletedPartial:
		return "completed_partial"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Partial-completion reasons
const (
	ReasonTimeout  = "timeout"
	ReasonCanceled = "canceled"
)

// RunOutcome is what a run ends with
type RunOutcome struct {
	Status Status
	// Reason explains a partial completion
	Reason string
	// Err is the fatal error of a failed run
	Err error
	// PagesSelected and PagesWritten count page sections
	PagesSelected int
	PagesWritten  int
	// SoftFailures counts layers replaced by an error marker
	SoftFailures int
	XFAWritten   bool
}

// ExitCode maps the outcome to the process exit status
func (o RunOutcome) ExitCode() int {
	switch o.Status {
	case Completed:
		return exterr.ExitOK
	case CompletedPartial:
		return exterr.ExitTimeout
	default:
		code := exterr.ExitCodeOf(o.Err)
		if code == exterr.ExitOK {
			return exterr.ExitInternal
		}
		return code
	}
}

func (o RunOutcome) String() string {
	switch o.Status {
	case CompletedPartial:
		return fmt.Sprintf("%s (%s) after %d of %d pages", o.Status, o.Reason, o.PagesWritten, o.PagesSelected)
	case Failed:
		return fmt.Sprintf("%s: %v", o.Status, o.Err)
	default:
		return fmt.Sprintf("%s: %d pages", o.Status, o.PagesWritten)
	}
}
