package errors

import (
	stderrors "errors"
	"fmt"
)

// ExtractError is a classified failure of an extraction run, carrying enough
// context to decide whether the run can continue and which exit code to use.
type ExtractError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Context    string    `json:"context,omitempty"`
	PageNumber int       `json:"page_number,omitempty"`
	Err        error     `json:"-"`
}

// ErrorType represents the categories of failures a run can hit
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeConfig
	ErrorTypeInput
	ErrorTypeDocumentOpen
	ErrorTypeInvalidRange
	ErrorTypeXfaParse
	ErrorTypePageText
	ErrorTypePageRender
	ErrorTypePageRecognition
	ErrorTypeTimeout
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitConfig       = 1
	ExitTimeout      = 2
	ExitInput        = 3
	ExitDocumentOpen = 4
	ExitXfaParse     = 5
	ExitInternal     = 6
)

// Error implements the error interface
func (e *ExtractError) Error() string {
	msg := e.Message
	if e.PageNumber > 0 {
		msg = fmt.Sprintf("page %d: %s", e.PageNumber, msg)
	}
	if e.Context != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Context)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type.String(), msg)
}

// Unwrap returns the underlying cause
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeInput:
		return "INPUT"
	case ErrorTypeDocumentOpen:
		return "DOCUMENT_OPEN"
	case ErrorTypeInvalidRange:
		return "INVALID_RANGE"
	case ErrorTypeXfaParse:
		return "XFA_PARSE"
	case ErrorTypePageText:
		return "PAGE_TEXT"
	case ErrorTypePageRender:
		return "PAGE_RENDER"
	case ErrorTypePageRecognition:
		return "PAGE_RECOGNITION"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypePageText, ErrorTypePageRender, ErrorTypePageRecognition:
		return SeverityWarning
	case ErrorTypeTimeout:
		return SeverityInfo
	case ErrorTypeXfaParse:
		return SeverityError
	default:
		return SeverityFatal
	}
}

// IsRecoverable reports whether a run may continue after an error of this type.
// Page-scoped failures are recorded inline and the page loop moves on.
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypePageText, ErrorTypePageRender, ErrorTypePageRecognition:
		return true
	default:
		return false
	}
}

// ExitCode maps the error type to the process exit status
func (et ErrorType) ExitCode() int {
	switch et {
	case ErrorTypeConfig, ErrorTypeInvalidRange:
		return ExitConfig
	case ErrorTypeTimeout:
		return ExitTimeout
	case ErrorTypeInput:
		return ExitInput
	case ErrorTypeDocumentOpen:
		return ExitDocumentOpen
	case ErrorTypeXfaParse:
		return ExitXfaParse
	default:
		return ExitInternal
	}
}

// New creates a new ExtractError
func New(errorType ErrorType, message string) *ExtractError {
	return &ExtractError{Type: errorType, Message: message}
}

// Newf creates a new ExtractError with a formatted message
func Newf(errorType ErrorType, format string, args ...any) *ExtractError {
	return &ExtractError{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error
func Wrap(errorType ErrorType, message string, err error) *ExtractError {
	return &ExtractError{Type: errorType, Message: message, Err: err}
}

// WithContext adds context to an existing ExtractError
func (e *ExtractError) WithContext(context string) *ExtractError {
	e.Context = context
	return e
}

// WithPage adds page number information to an existing ExtractError
func (e *ExtractError) WithPage(pageNumber int) *ExtractError {
	e.PageNumber = pageNumber
	return e
}

// IsRecoverable reports whether the run may continue
func (e *ExtractError) IsRecoverable() bool {
	return e.Type.IsRecoverable()
}

// TypeOf returns the classification of err, or ErrorTypeUnknown when err
// carries no ExtractError in its chain.
func TypeOf(err error) ErrorType {
	var xe *ExtractError
	if stderrors.As(err, &xe) {
		return xe.Type
	}
	return ErrorTypeUnknown
}

// ExitCodeOf returns the exit status for err. A nil error exits 0.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	return TypeOf(err).ExitCode()
}

// Is reports whether err is classified as errorType
func Is(err error, errorType ErrorType) bool {
	return TypeOf(err) == errorType
}
