// internal/errors/kinds.go
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies pipeline failures. None of them is fatal to a batch.
type Kind string

const (
	KindParseFailure      Kind = "PARSE_FAILURE"
	KindValidationReject  Kind = "VALIDATION_REJECT"
	KindFetchFailure      Kind = "FETCH_FAILURE"
	KindMalformedDocument Kind = "MALFORMED_DOCUMENT"
	KindConfig            Kind = "CONFIG_ERROR"
	KindStorage           Kind = "STORAGE_ERROR"
)

// Sentinels for errors.Is checks against a kind.
var (
	ErrParseFailure      = &PipelineError{Kind: KindParseFailure}
	ErrValidationReject  = &PipelineError{Kind: KindValidationReject}
	ErrFetchFailure      = &PipelineError{Kind: KindFetchFailure}
	ErrMalformedDocument = &PipelineError{Kind: KindMalformedDocument}
	ErrConfig            = &PipelineError{Kind: KindConfig}
	ErrStorage           = &PipelineError{Kind: KindStorage}
)

// PipelineError carries the failing operation and its kind.
type PipelineError struct {
	Kind Kind
	Op   string
	Err  error
}

// New wraps err as a PipelineError of the given kind
func New(kind Kind, op string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}

// Newf builds a PipelineError from a formatted message
func Newf(kind Kind, op, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the underlying cause for error unwrapping
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches any PipelineError of the same kind
func (e *PipelineError) Is(target error) bool {
	if pe, ok := target.(*PipelineError); ok {
		return e.Kind == pe.Kind
	}
	return false
}

// KindOf extracts the kind of err, or "" if err is not a PipelineError.
func KindOf(err error) Kind {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Is, As and Join re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }
