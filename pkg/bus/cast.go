package bus

import (
	"fmt"
	"reflect"

	"github.com/fluxorio/arquebus/pkg/core"
)

// As converts v to Out. An absent v yields the zero Out without error;
// any other value that is not an Out yields ErrTypeMismatch.
func As[Out any](v interface{}) (Out, error) {
	if out, ok := v.(Out); ok {
		return out, nil
	}
	var zero Out
	if core.IsNil(v) {
		return zero, nil
	}
	return zero, core.TypeMismatch(fmt.Sprintf("%T", v), typeName[Out]())
}

// TryAs is As reporting success as a bool
func TryAs[Out any](v interface{}) (Out, bool) {
	out, err := As[Out](v)
	return out, err == nil
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
