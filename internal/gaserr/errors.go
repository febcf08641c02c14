// Package gaserr defines the closed set of error kinds the gas-metering
// pipeline returns, so callers can distinguish "your configuration is bad"
// from "the input module is malformed" from "the pipeline itself broke."
package gaserr

import (
	"errors"
	"fmt"
)

// Kind is one of the four closed error categories the pipeline ever returns.
type Kind int

const (
	// KindConfig marks a problem with how the pipeline was configured:
	// an incomplete cost table, an invalid accountant signature, and so on.
	KindConfig Kind = iota
	// KindMalformedInput marks a problem with the module being instrumented:
	// truncated sections, an unbalanced control stack, an out-of-range index.
	KindMalformedInput
	// KindCostOverflow marks a segment whose accumulated cost exceeds the
	// representable range of the accountant call's argument.
	KindCostOverflow
	// KindInternal marks a condition the pipeline's own invariants should
	// have prevented; seeing one means a bug in this repository, not bad
	// input or configuration.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindMalformedInput:
		return "malformed-input"
	case KindCostOverflow:
		return "cost-overflow"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with the Kind that classifies it and,
// where relevant, the identity of the function the error was raised for.
type Error struct {
	Kind     Kind
	Function string // function index or name this error pertains to, if any
	Cause    error
}

func (e *Error) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Function, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, gaserr.Config), etc. by comparing Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Cause == nil
}

// Sentinel errors usable with errors.Is to test an error's Kind without
// caring about its message, e.g. errors.Is(err, gaserr.Config).
var (
	Config         = &Error{Kind: KindConfig}
	MalformedInput = &Error{Kind: KindMalformedInput}
	CostOverflow   = &Error{Kind: KindCostOverflow}
	Internal       = &Error{Kind: KindInternal}
)

// Configf builds a config-kind error from a format string.
func Configf(format string, args ...any) error {
	return &Error{Kind: KindConfig, Cause: fmt.Errorf(format, args...)}
}

// MalformedInputf builds a malformed-input-kind error from a format string.
func MalformedInputf(format string, args ...any) error {
	return &Error{Kind: KindMalformedInput, Cause: fmt.Errorf(format, args...)}
}

// MalformedInputFuncf builds a malformed-input-kind error attributed to a
// specific function.
func MalformedInputFuncf(function string, format string, args ...any) error {
	return &Error{Kind: KindMalformedInput, Function: function, Cause: fmt.Errorf(format, args...)}
}

// CostOverflowf builds a cost-overflow-kind error attributed to a specific
// function.
func CostOverflowf(function string, format string, args ...any) error {
	return &Error{Kind: KindCostOverflow, Function: function, Cause: fmt.Errorf(format, args...)}
}

// Internalf builds an internal-kind error from a format string.
func Internalf(format string, args ...any) error {
	return &Error{Kind: KindInternal, Cause: fmt.Errorf(format, args...)}
}

// IsKind reports whether err's chain contains a gaserr.Error of the given Kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
