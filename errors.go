package diskalloc

import "fmt"

// Error represents a diskalloc error with a classification code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error // wrapped error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("diskalloc: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("diskalloc: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code, so errors.Is(err, ErrCapacityExceeded) works
// regardless of the message and wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ErrorCode classifies allocator failures.
type ErrorCode int

const (
	// CodeIO indicates the backing file could not be created, opened or
	// resized (disk full, permission denied, ...).
	CodeIO ErrorCode = iota + 1

	// CodeMappingFailed indicates the fixed-size virtual-address
	// reservation could not be established at construction. This is
	// "out of address space", distinct from "out of disk space".
	CodeMappingFailed

	// CodeCapacityExceeded indicates an allocation or growth would pass
	// the reservation cap.
	CodeCapacityExceeded

	// CodeUnsupported indicates an operation the arena has no path for,
	// such as growing across mismatched alignments.
	CodeUnsupported

	// CodeBadLayout indicates an invalid layout: an alignment that is
	// not a power of two, or sizes that would overflow when padded.
	CodeBadLayout

	// CodeClosed indicates an operation on a torn-down arena.
	CodeClosed
)

// Canonical errors for use with errors.Is. Operations return *Error
// values carrying these codes plus a concrete message and cause.
var (
	ErrMappingFailed    = &Error{Code: CodeMappingFailed, Message: "mapping failed"}
	ErrCapacityExceeded = &Error{Code: CodeCapacityExceeded, Message: "reservation capacity exceeded"}
	ErrUnsupported      = &Error{Code: CodeUnsupported, Message: "unsupported operation"}
	ErrBadLayout        = &Error{Code: CodeBadLayout, Message: "bad layout"}
	ErrClosed           = &Error{Code: CodeClosed, Message: "allocator is closed"}
)

func errIO(msg string, err error) *Error {
	return &Error{Code: CodeIO, Message: msg, Err: err}
}

func errCapacity(requested, free int64) *Error {
	return &Error{
		Code:    CodeCapacityExceeded,
		Message: fmt.Sprintf("requested %d bytes with %d free under the reservation cap", requested, free),
	}
}
