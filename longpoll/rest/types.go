package rest

import (
	"errors"
	"fmt"
)

const (
	DefaultFetchPath   = "/get-messages"
	DefaultPublishPath = "/new-messages"
)

// MessageRecord is the wire form of a feed message.
type MessageRecord struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrNoContent is returned by GetMessage when the server ended the poll
// without a record (204 No Content).
var ErrNoContent = errors.New("rest: no content")

// ErrDecode marks a success response whose body could not be decoded.
var ErrDecode = errors.New("rest: decode response")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http error (status %d)", e.StatusCode)
}
