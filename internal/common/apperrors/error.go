// Package apperrors defines the layered error values used across the
// service. Errors form a hierarchy: a sentinel created with New can derive
// more specific sentinels with New, and call sites attach per-occurrence
// detail with Msg and Err. errors.Is matches an error against any of its
// ancestors.
package apperrors

// Error is the interface implemented by all service errors.
type Error interface {
	error
	// New derives a child sentinel from this error.
	New(msg string) Error
	// Msg returns a copy of this error with a more specific message.
	Msg(msg string) Error
	// MsgErr returns a copy with a message and wrapped causes.
	MsgErr(msg string, err ...error) Error
	// Err returns a copy wrapping the given causes.
	Err(err ...error) Error
	// ErrorAll renders the message including wrapped causes.
	ErrorAll() string
	Unwrap() []error
	Is(target error) bool
	SetStatusCode(code int) Error
	StatusCode() int
}
