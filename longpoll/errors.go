package longpoll

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/coder/websocket"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll/rest"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// Transport errors. Fetch failures of these kinds are retried by the loop.
	ErrorTransport
	ErrorTimeout
	ErrorStatus
	ErrorSerialization

	// Client-side errors
	ErrorInvalidConfig
	ErrorAlreadyStarted
	ErrorStopped
	ErrorEmptyMessage
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorTransport:
		return "transport_error"
	case ErrorTimeout:
		return "timeout"
	case ErrorStatus:
		return "bad_status"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorAlreadyStarted:
		return "already_started"
	case ErrorStopped:
		return "stopped"
	case ErrorEmptyMessage:
		return "empty_message"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ErrNoMessage is returned by a Feed when a poll ended without delivering a
// message. It is not a failure: the loop polls again without delay.
var ErrNoMessage = errors.New("longpoll: no message available")

// Error is a structured error with code and context.
type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int // set for ErrorStatus
	Wrapped    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface for error comparison.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with an Error.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// IsTransportError reports whether err is a network, timeout, status or
// decoding failure of a single feed exchange.
func IsTransportError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case ErrorTransport, ErrorTimeout, ErrorStatus, ErrorSerialization:
		return true
	default:
		return false
	}
}

// IsStatusError reports whether err came from a non-success HTTP response.
func IsStatusError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == ErrorStatus
}

// transportError classifies a raw transport failure.
func transportError(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	var statusErr *rest.StatusError
	if errors.As(err, &statusErr) {
		return &Error{
			Code:       ErrorStatus,
			Message:    op + " failed",
			StatusCode: statusErr.StatusCode,
			Wrapped:    err,
		}
	}
	if errors.Is(err, rest.ErrDecode) {
		return WrapError(ErrorSerialization, op+" returned malformed record", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(ErrorTimeout, op+" timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return WrapError(ErrorTimeout, op+" timed out", err)
	}
	if status := websocket.CloseStatus(err); status != -1 {
		return WrapError(ErrorTransport, fmt.Sprintf("%s: connection closed (%d)", op, status), err)
	}
	return WrapError(ErrorTransport, op+" failed", err)
}
