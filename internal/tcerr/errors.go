// Package tcerr implements the error taxonomy shared by every tensorcore
// component (spec.md §7). Kernels, the memory system, the pattern cache,
// and the executor all return *Error values built through New/Wrap so a
// caller can always recover the taxonomy Kind via errors.As, regardless of
// how many layers wrapped the original cause.
package tcerr

import (
	"errors"
	"fmt"
)

// Kind is one of the closed error categories from spec.md §7.
type Kind int

const (
	// InvalidInput: wrong arity or argument violates a kernel contract
	// (e.g. axis out of range).
	InvalidInput Kind = iota
	// InvalidShape: shape incompatible with the requested operation.
	InvalidShape
	// InvalidDtype: dtype not supported by this kernel.
	InvalidDtype
	// InvalidOperation: op tag not applicable to this kernel path.
	InvalidOperation
	// NotImplemented: valid combination the core does not yet handle.
	NotImplemented
	// OutOfMemory: arena cannot grow further, or the pattern cache
	// refuses a record even after full eviction.
	OutOfMemory
	// AllocationFailed: a lower-level allocator returned null/failed.
	AllocationFailed
	// InvalidCheckpoint: unknown or future checkpoint id.
	InvalidCheckpoint
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case InvalidShape:
		return "InvalidShape"
	case InvalidDtype:
		return "InvalidDtype"
	case InvalidOperation:
		return "InvalidOperation"
	case NotImplemented:
		return "NotImplemented"
	case OutOfMemory:
		return "OutOfMemory"
	case AllocationFailed:
		return "AllocationFailed"
	case InvalidCheckpoint:
		return "InvalidCheckpoint"
	default:
		return "Unknown"
	}
}

// Error is the taxonomy-tagged error type every package in tensorcore
// returns. The host-facing message (spec.md §6) is Error()'s output.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, tcerr.New(kind, "")) to match purely on Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a fresh taxonomy error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds a fresh taxonomy error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a taxonomy Kind and message to an underlying cause.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind of err if it (or something it wraps) is a
// *Error, and reports whether extraction succeeded.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
