package kernel

import (
	"errors"
	"fmt"
)

// Error represents a structured kernel error with context, replacing the
// plain signed-int success/failure codes of the original firmware with a
// sum type at the language boundary per the REDESIGN FLAGS section.
type Error struct {
	Op     string          // Operation that failed (e.g. "CREATE_TASK", "INIT_KERNEL")
	TaskID int             // Task identity involved, or -1 if not applicable
	Code   KernelErrorCode // High-level error category
	Msg    string          // Human-readable message
	Inner  error           // Wrapped error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	if e.TaskID >= 0 {
		parts = append(parts, fmt.Sprintf("task=%d", e.TaskID))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("dkernel: %s (%s)", msg, parts[0])
	}

	return fmt.Sprintf("dkernel: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support, comparing by error code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// KernelErrorCode represents a high-level failure category.
type KernelErrorCode string

const (
	// ErrCodePoolExhausted: CreateTask found no DEAD slot.
	ErrCodePoolExhausted KernelErrorCode = "task pool exhausted"
	// ErrCodeClockUnfittable: no prescaler fits the requested quantum.
	ErrCodeClockUnfittable KernelErrorCode = "quantum does not fit any clock prescaler"
	// ErrCodeInvalidIdentity: an out-of-range task identity was supplied.
	ErrCodeInvalidIdentity KernelErrorCode = "invalid task identity"
	// ErrCodeAlreadyStarted: StartKernel called more than once.
	ErrCodeAlreadyStarted KernelErrorCode = "kernel already started"
	// ErrCodeNotInitialized: an operation was attempted before InitKernel completed.
	ErrCodeNotInitialized KernelErrorCode = "kernel not initialized"
	// ErrCodeInvalidConfig: Config failed validation in InitKernel.
	ErrCodeInvalidConfig KernelErrorCode = "invalid kernel configuration"
)

// NewError creates a new structured error with no task scope.
func NewError(op string, code KernelErrorCode, msg string) *Error {
	return &Error{Op: op, TaskID: -1, Code: code, Msg: msg}
}

// NewTaskError creates a new structured error scoped to a task identity.
func NewTaskError(op string, taskID int, code KernelErrorCode, msg string) *Error {
	return &Error{Op: op, TaskID: taskID, Code: code, Msg: msg}
}

// WrapError wraps an existing error with kernel operation context.
func WrapError(op string, code KernelErrorCode, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ke, ok := inner.(*Error); ok {
		return &Error{Op: op, TaskID: ke.TaskID, Code: ke.Code, Msg: ke.Msg, Inner: ke.Inner}
	}
	return &Error{Op: op, TaskID: -1, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a structured *Error matching the given code.
func IsCode(err error, code KernelErrorCode) bool {
	var kerr *Error
	if errors.As(err, &kerr) {
		return kerr.Code == code
	}
	return false
}
