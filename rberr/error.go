// Package rberr defines the stable error taxonomy every rustbridge-go
// subsystem funnels failures through before they cross the FFI boundary.
package rberr

import (
	"errors"
	"fmt"
)

// Code is one of the closed set of stable numeric error codes. Code 0 is
// reserved for success and is never carried by an *Error value.
type Code uint32

const (
	CodeInvalidState       Code = 1
	CodeInitFailed         Code = 2
	CodeShutdownFailed     Code = 3
	CodeConfigError        Code = 4
	CodeSerializationError Code = 5
	CodeUnknownMessageType Code = 6
	CodeHandlerError       Code = 7
	CodeRuntimeError       Code = 8
	CodeCancelled          Code = 9 // reserved, never emitted
	CodeTimeout            Code = 10
	CodeInternal           Code = 11
	CodeFfiError           Code = 12
	CodeTooManyRequests    Code = 13
)

// String names a code the way a host-side log line would want to print it.
func (c Code) String() string {
	switch c {
	case CodeInvalidState:
		return "InvalidState"
	case CodeInitFailed:
		return "InitFailed"
	case CodeShutdownFailed:
		return "ShutdownFailed"
	case CodeConfigError:
		return "ConfigError"
	case CodeSerializationError:
		return "SerializationError"
	case CodeUnknownMessageType:
		return "UnknownMessageType"
	case CodeHandlerError:
		return "HandlerError"
	case CodeRuntimeError:
		return "RuntimeError"
	case CodeCancelled:
		return "Cancelled"
	case CodeTimeout:
		return "Timeout"
	case CodeInternal:
		return "Internal"
	case CodeFfiError:
		return "FfiError"
	case CodeTooManyRequests:
		return "TooManyRequests"
	default:
		return fmt.Sprintf("Code(%d)", c)
	}
}

// Error is the carried code+message record that crosses every package
// boundary in this module. It wraps an optional cause, so callers can
// still walk the chain with errors.Is/As.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// New builds an *Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an *Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error carrying an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Wrapf builds an *Error with a formatted message and an underlying cause.
func Wrapf(code Code, format string, cause error, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap lets errors.Is/errors.As see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// As extracts an *Error from a plain error, the way callers turn a handler's
// domain error into the taxonomy before it leaves the dispatcher.
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// FromRecover converts a recovered panic value into Internal(11), carrying
// the panic's message when one is available. This is the only place in the
// core that is allowed to mint Internal(11): every other caught failure maps
// to a more specific code.
func FromRecover(r any) *Error {
	if err, ok := r.(error); ok {
		return Wrap(CodeInternal, "recovered panic", err)
	}
	return Newf(CodeInternal, "recovered panic: %v", r)
}
