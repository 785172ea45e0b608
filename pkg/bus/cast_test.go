package bus_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fluxorio/arquebus/pkg/bus"
	"github.com/fluxorio/arquebus/pkg/core"
)

func TestAs(t *testing.T) {
	if v, err := bus.As[int](33); err != nil || v != 33 {
		t.Errorf("As[int](33) = (%v, %v)", v, err)
	}

	if v, err := bus.As[*TestModel](nil); err != nil || v != nil {
		t.Errorf("As[*TestModel](nil) = (%v, %v), want (nil, nil)", v, err)
	}
	var nilModel *TestModel
	if _, err := bus.As[fmt.Stringer](nilModel); err != nil {
		t.Errorf("As of a typed nil should pass through, got %v", err)
	}

	_, err := bus.As[*TestModel]("text")
	if !errors.Is(err, core.ErrTypeMismatch) {
		t.Fatalf("As[*TestModel](string) error = %v, want ErrTypeMismatch", err)
	}
	want := "unable to convert type string to *bus_test.TestModel"
	if err.Error() != want {
		t.Errorf("error message = %q, want %q", err.Error(), want)
	}

	// interface targets accept any implementation
	if v, err := bus.As[fmt.Stringer](Test2); err != nil || v.String() != "Test2" {
		t.Errorf("As[fmt.Stringer](Test2) = (%v, %v)", v, err)
	}
}

func TestTryAs(t *testing.T) {
	if v, ok := bus.TryAs[string]("ok"); !ok || v != "ok" {
		t.Errorf("TryAs[string](ok) = (%q, %v)", v, ok)
	}
	if _, ok := bus.TryAs[string](42); ok {
		t.Error("TryAs[string](42) should fail")
	}
}

func TestHandle(t *testing.T) {
	a := bus.NewHandle(Test1)
	b := bus.NewHandle(Test1)

	if a.Equal(b) {
		t.Error("handles for the same target must differ")
	}
	if !a.Equal(a) {
		t.Error("a handle must equal itself")
	}
	if a.Target() != Test1 {
		t.Errorf("Target() = %v, want Test1", a.Target())
	}
	var nilHandle *bus.Handle[ActionTest]
	if a.Equal(nilHandle) || !nilHandle.Equal(nil) {
		t.Error("nil handle comparison is wrong")
	}
	if a.String() != a.ID().String() {
		t.Error("String() should render the id")
	}
}
