package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching.
type Kind string

const (
	KindUnknown      Kind = "UNKNOWN"
	KindValidation   Kind = "VALIDATION"
	KindForbidden    Kind = "FORBIDDEN"
	KindConflict     Kind = "CONFLICT"
	KindNotFound     Kind = "NOT_FOUND"
	KindInvalidState Kind = "INVALID_STATE"
	KindUnavailable  Kind = "UNAVAILABLE"
)

// Error is the structured failure returned across component boundaries.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Constructors
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(msg string) error {
	return New(KindValidation, msg)
}

func Forbidden(msg string) error {
	return New(KindForbidden, msg)
}

func Conflict(msg string) error {
	return New(KindConflict, msg)
}

func NotFound(msg string) error {
	return New(KindNotFound, msg)
}

func InvalidState(msg string) error {
	return New(KindInvalidState, msg)
}

func Unavailable(msg string, cause error) error {
	return Wrap(KindUnavailable, msg, cause)
}

// KindOf extracts the Kind from err, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func IsNotFound(err error) bool     { return IsKind(err, KindNotFound) }
func IsForbidden(err error) bool    { return IsKind(err, KindForbidden) }
func IsConflict(err error) bool     { return IsKind(err, KindConflict) }
func IsValidation(err error) bool   { return IsKind(err, KindValidation) }
func IsInvalidState(err error) bool { return IsKind(err, KindInvalidState) }
