package nmerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	e := New(InvalidArgument, "interfaces[0].vlan.id", "id %d out of range", 5000)
	want := "nmstate: InvalidArgument: interfaces[0].vlan.id: id 5000 out of range"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(Bug, "", nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(Bug, "", cause)
	if !errors.Is(e, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestKindOf(t *testing.T) {
	e := New(DependencyError, "vlan101", "missing parent")
	wrapped := fmt.Errorf("apply: %w", e)

	kind, ok := KindOf(wrapped)
	if !ok || kind != DependencyError {
		t.Errorf("KindOf() = %v, %v, want DependencyError, true", kind, ok)
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf() on a plain error should report ok=false")
	}
}
