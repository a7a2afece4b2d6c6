// Package status models the RPC-style error vocabulary the core uses
// instead of panics: a closed set of codes plus a human-readable message.
package status

import "fmt"

// Code is one kind from the taxonomy. New codes are added here, not by
// embedding or subclassing.
type Code int

const (
	OK Code = iota
	Cancelled
	InvalidArgument
	NotFound
	AlreadyExists
	PermissionDenied
	FailedPrecondition
	Aborted
	OutOfRange
	Unimplemented
	Internal
	DataLoss
	Unknown
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case Cancelled:
		return "CANCELLED"
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case NotFound:
		return "NOT_FOUND"
	case AlreadyExists:
		return "ALREADY_EXISTS"
	case PermissionDenied:
		return "PERMISSION_DENIED"
	case FailedPrecondition:
		return "FAILED_PRECONDITION"
	case Aborted:
		return "ABORTED"
	case OutOfRange:
		return "OUT_OF_RANGE"
	case Unimplemented:
		return "UNIMPLEMENTED"
	case Internal:
		return "INTERNAL"
	case DataLoss:
		return "DATA_LOSS"
	default:
		return "UNKNOWN"
	}
}

// Status is the error value every component returns in place of a panic.
type Status struct {
	Code    Code
	Message string
}

func (s *Status) Error() string {
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}

// New builds a *Status as an error. It is always non-nil.
func New(code Code, format string, args ...any) *Status {
	return &Status{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a *Status carrying the given code.
func Is(err error, code Code) bool {
	s, ok := err.(*Status)
	return ok && s != nil && s.Code == code
}

// Of extracts the *Status from err, if any.
func Of(err error) (*Status, bool) {
	s, ok := err.(*Status)
	return s, ok
}
