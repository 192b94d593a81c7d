package error

import (
	"fmt"
	"runtime"
	"strings"
)

// ErrorCategory classifies errors by how a caller is expected to react.
type ErrorCategory int

const (
	// ErrCategoryUser covers contract violations by the caller: schema
	// mismatches, operations on the wrong slot, misuse of an iterator.
	ErrCategoryUser ErrorCategory = iota

	// ErrCategoryTransient covers conditions that may clear on retry.
	ErrCategoryTransient

	// ErrCategorySystem covers I/O and environment failures.
	ErrCategorySystem

	// ErrCategoryData covers corrupt or unreadable persisted data.
	ErrCategoryData

	// ErrCategoryConcurrency covers lock waits that gave up.
	ErrCategoryConcurrency
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryUser:
		return "user"
	case ErrCategoryTransient:
		return "transient"
	case ErrCategorySystem:
		return "system"
	case ErrCategoryData:
		return "data"
	case ErrCategoryConcurrency:
		return "concurrency"
	default:
		return "unknown"
	}
}

// DBError is a structured kernel error.
type DBError struct {
	// Code identifies the error kind, e.g. "SLOT_STATE" or "CORRUPT_PAGE_DATA".
	Code string

	Category ErrorCategory

	// Message is the short human-readable description.
	Message string

	// Detail describes this particular occurrence.
	Detail string

	// Hint suggests a way out, when there is one.
	Hint string

	// Operation is the kernel operation that failed, e.g. "InsertTuple".
	Operation string

	// Component is where the error originated, e.g. "HeapPage".
	Component string

	Cause error

	// Stack is captured by New and Wrap.
	Stack []uintptr
}

// New creates a DBError with the given category, code and message.
func New(category ErrorCategory, code, message string) *DBError {
	return &DBError{
		Code:     code,
		Category: category,
		Message:  message,
		Stack:    captureStack(),
	}
}

// Newf creates a DBError of the same kind as proto with a formatted detail.
func Newf(proto *DBError, format string, args ...any) *DBError {
	return &DBError{
		Code:     proto.Code,
		Category: proto.Category,
		Message:  proto.Message,
		Detail:   fmt.Sprintf(format, args...),
		Stack:    captureStack(),
	}
}

// Wrap attaches kernel context to err. An existing DBError is enriched in
// place with operation and component when those are still unset.
func Wrap(err error, code, operation, component string) *DBError {
	if err == nil {
		return nil
	}

	if dbErr, ok := err.(*DBError); ok {
		if dbErr.Operation == "" {
			dbErr.Operation = operation
		}
		if dbErr.Component == "" {
			dbErr.Component = component
		}
		return dbErr
	}

	return &DBError{
		Code:      code,
		Category:  ErrCategorySystem,
		Message:   err.Error(),
		Operation: operation,
		Component: component,
		Cause:     err,
		Stack:     captureStack(),
	}
}

// At sets operation and component and returns the receiver, for use in
// return statements.
func (e *DBError) At(operation, component string) *DBError {
	e.Operation = operation
	e.Component = component
	return e
}

// WithCause sets the underlying error and returns the receiver.
func (e *DBError) WithCause(cause error) *DBError {
	e.Cause = cause
	return e
}

// captureStack skips runtime.Callers, captureStack and the constructor.
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[0:n]
}

// Error formats as:
// [CODE] Message: Detail (operation: Operation, component: Component) caused by: cause
func (e *DBError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}

	if e.Operation != "" {
		fmt.Fprintf(&b, " (operation: %s", e.Operation)
		if e.Component != "" {
			fmt.Fprintf(&b, ", component: %s", e.Component)
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		fmt.Fprintf(&b, " caused by: %v", e.Cause)
	}

	return b.String()
}

func (e *DBError) Unwrap() error {
	return e.Cause
}

// Is matches any DBError carrying the same code, so sentinel values can be
// used with errors.Is.
func (e *DBError) Is(target error) bool {
	t, ok := target.(*DBError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// FormatStack renders the captured stack for debugging.
func (e *DBError) FormatStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(e.Stack)

	b.WriteString("Stack trace:\n")
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "  %s\n    %s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}

	return b.String()
}
