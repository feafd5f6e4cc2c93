// Package kernelerrors provides typed error handling for the rustcore-go
// microkernel and its boot collaborators.
//
// It mirrors the taxonomy-plus-sentinel approach used throughout this
// codebase: a small set of Kind values classify failures, and a
// KernelError carries enough context (subsystem, operation, detail) for a
// serial-console diagnostic or a CLI error message without callers having
// to reconstruct it from a bare error string.
package kernelerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a kernel-level error.
type Kind int

const (
	// KindNotFound indicates a requested resource does not exist.
	KindNotFound Kind = iota
	// KindInvalidState indicates an operation was attempted from an
	// invalid state (e.g. receiving on an empty channel).
	KindInvalidState
	// KindInvalidConfig indicates malformed input: a handoff record,
	// a bootfs image, or a service manifest.
	KindInvalidConfig
	// KindResource indicates a resource limit was hit (frame exhaustion,
	// channel full, scheduler queue full).
	KindResource
	// KindFault indicates a captured CPU fault.
	KindFault
	// KindInternal indicates an internal invariant violation.
	KindInternal
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidState:
		return "invalid state"
	case KindInvalidConfig:
		return "invalid config"
	case KindResource:
		return "resource exhausted"
	case KindFault:
		return "cpu fault"
	case KindInternal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// KernelError represents an error that occurred in a kernel subsystem.
type KernelError struct {
	// Subsystem is the package that raised the error (e.g. "memory", "ipc").
	Subsystem string
	// Op is the operation that failed (e.g. "allocate_frame", "send").
	Op string
	// Kind classifies the error.
	Kind Kind
	// Detail provides additional human-readable context.
	Detail string
	// Err is the underlying error, if any.
	Err error
}

// Error returns the error message.
func (e *KernelError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	if e.Subsystem != "" {
		msg = fmt.Sprintf("%s: ", e.Subsystem)
	}
	if e.Op != "" {
		msg += fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *KernelError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches target. Two *KernelError values
// match if they share the same Kind and Detail; this lets sentinel values
// like ErrFull serve as errors.Is() targets regardless of their Op.
func (e *KernelError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	t, ok := target.(*KernelError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Detail == t.Detail
}

// New creates a new KernelError.
func New(subsystem, op string, kind Kind, detail string) *KernelError {
	return &KernelError{Subsystem: subsystem, Op: op, Kind: kind, Detail: detail}
}

// Wrap wraps an underlying error with subsystem/operation context.
func Wrap(err error, subsystem, op string, kind Kind) *KernelError {
	return &KernelError{Subsystem: subsystem, Op: op, Kind: kind, Err: err}
}

// IsKind reports whether err is a KernelError of the given kind.
func IsKind(err error, kind Kind) bool {
	var kerr *KernelError
	if errors.As(err, &kerr) {
		return kerr.Kind == kind
	}
	return false
}

// Re-export standard library functions for convenience, as the rest of
// this codebase's error packages do.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
