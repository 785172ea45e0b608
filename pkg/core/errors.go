package core

import (
	"fmt"
)

// EventBusError represents a bus error.
//
// Errors with the same Code match each other under errors.Is, so callers can
// test against the sentinels below regardless of the detailed message:
//
//	if errors.Is(err, core.ErrNullArgument) { ... }
type EventBusError struct {
	Code    string
	Message string
	Err     error
}

func (e *EventBusError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *EventBusError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *EventBusError with the same code
func (e *EventBusError) Is(target error) bool {
	t, ok := target.(*EventBusError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Error codes
const (
	CodeNullArgument     = "NULL_ARGUMENT"
	CodeTypeMismatch     = "TYPE_MISMATCH"
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeListenerReleased = "LISTENER_RELEASED"
	CodeCallbackPanic    = "CALLBACK_PANIC"
)

// Errors
var (
	ErrNullArgument     = &EventBusError{Code: CodeNullArgument, Message: "required argument is missing"}
	ErrTypeMismatch     = &EventBusError{Code: CodeTypeMismatch, Message: "value has unexpected type"}
	ErrInvalidArgument  = &EventBusError{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrListenerReleased = &EventBusError{Code: CodeListenerReleased, Message: "listener has been released"}
	ErrCallbackPanic    = &EventBusError{Code: CodeCallbackPanic, Message: "callback panicked"}
)

// NullArgument returns an error for a missing required argument
func NullArgument(name string) error {
	return &EventBusError{Code: CodeNullArgument, Message: name + " cannot be nil"}
}

// TypeMismatch returns an error for a failed runtime conversion
func TypeMismatch(from, to string) error {
	return &EventBusError{Code: CodeTypeMismatch, Message: fmt.Sprintf("unable to convert type %s to %s", from, to)}
}

// InvalidArgument returns an error for an out of range argument
func InvalidArgument(message string) error {
	return &EventBusError{Code: CodeInvalidArgument, Message: message}
}
