package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/crossfade/internal/library"
)

// RunError represents a failure that aborts a run.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// RunToken identifies the affected run.
	RunToken string

	// Source is the source involved, if any.
	Source string

	// Err is the underlying cause.
	Err error
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeUnknownSource indicates a source id that is not registered.
	ErrCodeUnknownSource RunErrorCode = "UNKNOWN_SOURCE"

	// ErrCodeSourceFailed indicates a source returned an error from a pull
	// or identify call.
	ErrCodeSourceFailed RunErrorCode = "SOURCE_FAILED"

	// ErrCodeStoreFailed indicates the store aborted a batch.
	ErrCodeStoreFailed RunErrorCode = "STORE_FAILED"

	// ErrCodeReconcileFailed indicates the in-memory matcher or merge
	// rejected a pulled entity. The whole batch is abandoned.
	ErrCodeReconcileFailed RunErrorCode = "RECONCILE_FAILED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RunToken != "" && e.Source != "" {
		msg = fmt.Sprintf("%s (run=%s, source=%s)", msg, e.RunToken, e.Source)
	} else if e.RunToken != "" {
		msg = fmt.Sprintf("%s (run=%s)", msg, e.RunToken)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

func hasRunCode(err error, code RunErrorCode) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnknownSource returns true if the error is an unknown source error.
// Uses errors.As to handle wrapped errors.
func IsUnknownSource(err error) bool { return hasRunCode(err, ErrCodeUnknownSource) }

// IsSourceFailed returns true if a source call failed.
func IsSourceFailed(err error) bool { return hasRunCode(err, ErrCodeSourceFailed) }

// IsStoreFailed returns true if the store aborted a batch.
func IsStoreFailed(err error) bool { return hasRunCode(err, ErrCodeStoreFailed) }

// IsReconcileFailed returns true if in-memory reconciliation aborted a run.
func IsReconcileFailed(err error) bool { return hasRunCode(err, ErrCodeReconcileFailed) }

// ErrorCode returns the taxonomy code carried by err: a library error code,
// a run error code, or "ERROR" for anything else.
func ErrorCode(err error) string {
	var le *library.Error
	if errors.As(err, &le) {
		return string(le.Code)
	}
	var re *RunError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return "ERROR"
}
