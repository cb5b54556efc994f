package czerr

import (
	"errors"
	"testing"
)

func TestCodeRanges(t *testing.T) {
	if !StrokeError.IsChanErr() {
		t.Fatalf("StrokeError should be a chan error")
	}
	if StrokeError.IsKLDataErr() {
		t.Fatalf("StrokeError should not be a KL-data error")
	}
	if !BarInvalid.IsKLDataErr() {
		t.Fatalf("BarInvalid should be a KL-data error")
	}
	if BarInvalid.IsChanErr() {
		t.Fatalf("BarInvalid should not be a chan error")
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := New(SegLenError, "first")
	b := New(SegLenError, "second")
	if !errors.Is(a, b) {
		t.Fatalf("expected errors with the same code to match via errors.Is")
	}
	c := New(StrokeError, "third")
	if errors.Is(a, c) {
		t.Fatalf("expected errors with different codes not to match")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(ParamError, "context", cause)
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected Unwrap to expose the wrapped cause")
	}
}
