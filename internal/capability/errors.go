package capability

import (
	"errors"
	"fmt"
)

// ErrorKind classifies workflow failures.
type ErrorKind string

const (
	ErrorAbsent            ErrorKind = "capability_absent"
	ErrorUnavailable       ErrorKind = "capability_unavailable"
	ErrorValidationEmpty   ErrorKind = "validation_empty"
	ErrorInvocationFailure ErrorKind = "invocation_failure"
	ErrorBusy              ErrorKind = "busy"
)

var (
	ErrAbsent            = &Error{Kind: ErrorAbsent}
	ErrUnavailable       = &Error{Kind: ErrorUnavailable}
	ErrValidationEmpty   = &Error{Kind: ErrorValidationEmpty}
	ErrInvocationFailure = &Error{Kind: ErrorInvocationFailure}
	ErrBusy              = &Error{Kind: ErrorBusy}
)

// Error is a workflow failure. Message is safe to show to a user; Cause is only logged.
type Error struct {
	Kind       ErrorKind
	Capability Kind
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches on Kind, so errors.Is(err, ErrUnavailable) holds for every capability.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Capability != "" && t.Capability != e.Capability {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the ErrorKind of err, or ErrorInvocationFailure for foreign errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var capErr *Error
	if errors.As(err, &capErr) {
		return capErr.Kind
	}
	return ErrorInvocationFailure
}

// UserMessage returns the message safe to display for err.
func UserMessage(err error) string {
	var capErr *Error
	if errors.As(err, &capErr) && capErr.Message != "" {
		return capErr.Message
	}
	return "Something went wrong. Please try again."
}

func Absent(kind Kind) *Error {
	return &Error{
		Kind:       ErrorAbsent,
		Capability: kind,
		Message:    fmt.Sprintf("AI capabilities not available: no %s backend is configured.", kind),
	}
}

func NotAvailable(kind Kind) *Error {
	msg := kind.Label() + " not available"
	if kind == KindTranslation {
		msg = "Translation not available for this language pair"
	}
	return &Error{Kind: ErrorUnavailable, Capability: kind, Message: msg}
}

func EmptyInput(kind Kind) *Error {
	var msg string
	switch kind {
	case KindTranslation:
		msg = "Please enter text to translate"
	case KindDetection:
		msg = "Please enter text to detect language"
	case KindSummarization:
		msg = "Please enter text to summarize"
	default:
		msg = "Please enter some text"
	}
	return &Error{Kind: ErrorValidationEmpty, Capability: kind, Message: msg}
}

// EmptyBatch is reported when no batch item survives blank filtering.
func EmptyBatch() *Error {
	return &Error{
		Kind:       ErrorValidationEmpty,
		Capability: KindTranslation,
		Message:    "Please enter at least one text to translate",
	}
}

func Failed(kind Kind, cause error) *Error {
	return &Error{
		Kind:       ErrorInvocationFailure,
		Capability: kind,
		Message:    kind.Label() + " failed. Please try again.",
		Cause:      cause,
	}
}

func Busy(kind Kind) *Error {
	return &Error{
		Kind:       ErrorBusy,
		Capability: kind,
		Message:    kind.Label() + " is already running",
	}
}
