package core

import (
	"context"
	"fmt"
	"reflect"
)

// IsNil reports whether v is absent: a nil interface or a nil pointer, channel,
// func, map or slice stored in an interface.
func IsNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Chan, reflect.Func, reflect.Map, reflect.Slice, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// ValidateTarget validates a target key
func ValidateTarget(target interface{}) error {
	if IsNil(target) {
		return NullArgument("target")
	}
	return nil
}

// ValidateNotNil validates that a named argument is present
func ValidateNotNil(name string, v interface{}) error {
	if IsNil(v) {
		return NullArgument(name)
	}
	return nil
}

// ValidateContext validates a cancellation context
func ValidateContext(ctx context.Context) error {
	if ctx == nil {
		return NullArgument("context")
	}
	return nil
}

// ValidateTimes validates a repeat count for fixed listens
func ValidateTimes(times int) error {
	if times <= 0 {
		return InvalidArgument("the times to listen for publications must be greater than 0")
	}
	return nil
}

// ValidateCapacity validates a queue capacity (0 means unbounded)
func ValidateCapacity(capacity int) error {
	if capacity < 0 {
		return InvalidArgument(fmt.Sprintf("queue capacity cannot be negative, got %d", capacity))
	}
	return nil
}

// FailFast panics with an error (fail-fast principle)
func FailFast(err error) {
	if err != nil {
		panic(fmt.Errorf("fail-fast: %w", err))
	}
}

// FailFastIf panics if condition is true
func FailFastIf(condition bool, message string) {
	if condition {
		panic(fmt.Errorf("fail-fast: %s", message))
	}
}
