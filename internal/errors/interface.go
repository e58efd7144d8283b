// Package errors defines coded domain errors. Two errors with the same
// code match under errors.Is regardless of message or data.
package errors

// ErrorCode is the stable, machine-readable identity of an error. Codes
// appear in logs, the cycle journal and published outcomes.
type ErrorCode string

// Error is a domain error carrying a code, optional message and data.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
	Is(target error) bool
}

// Factory creates domain errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
