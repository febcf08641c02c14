package gaserr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKind(t *testing.T) {
	err := Configf("bad cost table")
	if !IsKind(err, KindConfig) {
		t.Errorf("IsKind(err, KindConfig) = false, want true")
	}
	if IsKind(err, KindMalformedInput) {
		t.Errorf("IsKind(err, KindMalformedInput) = true, want false")
	}
}

func TestIsKindThroughWrap(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", MalformedInputf("truncated body"))
	if !IsKind(err, KindMalformedInput) {
		t.Errorf("IsKind through fmt.Errorf wrap = false, want true")
	}
}

func TestErrorsIsSentinel(t *testing.T) {
	err := CostOverflowf("fn3", "segment cost %d exceeds limit", uint64(1)<<63)
	if !errors.Is(err, CostOverflow) {
		t.Errorf("errors.Is(err, CostOverflow) = false, want true")
	}
	if errors.Is(err, Config) {
		t.Errorf("errors.Is(err, Config) = true, want false")
	}
}

func TestErrorMessageIncludesFunction(t *testing.T) {
	err := MalformedInputFuncf("fn7", "unbalanced control stack")
	want := "malformed-input: fn7: unbalanced control stack"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
