package library

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes library and canonical store errors.
type ErrorCode string

const (
	// ErrCodeTypeMismatch indicates an entity of the wrong kind was supplied,
	// such as a playlist inserted into a song collection.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeIncompatibleMerge indicates a merge of entities that do not match.
	ErrCodeIncompatibleMerge ErrorCode = "INCOMPATIBLE_MERGE"

	// ErrCodeNotFound indicates a remove or lookup of a missing entity.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeIntegrityViolation indicates a canonical store write that would
	// violate a uniqueness or foreign key constraint.
	ErrCodeIntegrityViolation ErrorCode = "INTEGRITY_VIOLATION"

	// ErrCodeInvalidRecord indicates a source record missing required fields,
	// or an entity without references.
	ErrCodeInvalidRecord ErrorCode = "INVALID_RECORD"
)

// Error is the structured error returned by library and store operations.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Source is the service involved, when known.
	Source string

	// ExternalID is the source's identifier involved, when known.
	ExternalID string

	// CanonicalID is the canonical row involved, when known.
	CanonicalID int64

	// Err is the underlying cause (optional).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Source != "" && e.ExternalID != "" {
		msg = fmt.Sprintf("%s (source=%s, id=%s)", msg, e.Source, e.ExternalID)
	} else if e.Source != "" {
		msg = fmt.Sprintf("%s (source=%s)", msg, e.Source)
	}
	if e.CanonicalID != 0 {
		msg = fmt.Sprintf("%s (canonical=%d)", msg, e.CanonicalID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// IsTypeMismatch reports whether err is a TYPE_MISMATCH error.
func IsTypeMismatch(err error) bool { return hasCode(err, ErrCodeTypeMismatch) }

// IsIncompatibleMerge reports whether err is an INCOMPATIBLE_MERGE error.
func IsIncompatibleMerge(err error) bool { return hasCode(err, ErrCodeIncompatibleMerge) }

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsIntegrityViolation reports whether err is an INTEGRITY_VIOLATION error.
func IsIntegrityViolation(err error) bool { return hasCode(err, ErrCodeIntegrityViolation) }

// IsInvalidRecord reports whether err is an INVALID_RECORD error.
func IsInvalidRecord(err error) bool { return hasCode(err, ErrCodeInvalidRecord) }

// NewTypeMismatchError creates a TYPE_MISMATCH error.
func NewTypeMismatchError(want, got Kind) *Error {
	return &Error{
		Code:    ErrCodeTypeMismatch,
		Message: fmt.Sprintf("expected %s entity, got %s", want, got),
	}
}

// NewIncompatibleMergeError creates an INCOMPATIBLE_MERGE error.
func NewIncompatibleMergeError(a, b Entity) *Error {
	return &Error{
		Code:    ErrCodeIncompatibleMerge,
		Message: fmt.Sprintf("entities %v and %v do not match", a.Sources(), b.Sources()),
	}
}

// NewNotFoundError creates a NOT_FOUND error.
func NewNotFoundError(message string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: message}
}

// NewIntegrityError creates an INTEGRITY_VIOLATION error for a reference.
func NewIntegrityError(message, source, externalID string, cause error) *Error {
	return &Error{
		Code:       ErrCodeIntegrityViolation,
		Message:    message,
		Source:     source,
		ExternalID: externalID,
		Err:        cause,
	}
}

// NewInvalidRecordError creates an INVALID_RECORD error.
func NewInvalidRecordError(message, source string) *Error {
	return &Error{Code: ErrCodeInvalidRecord, Message: message, Source: source}
}
