package heyloyalty

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid heyloyalty configuration")
	// ErrUnknownCreation indicates a member create response without a member ID
	ErrUnknownCreation = errors.New("unknown creation error")
)

// RemoteError is returned when Heyloyalty answers with an error payload
type RemoteError struct {
	Message string
	// Payload is the raw value of the "error" key
	Payload json.RawMessage
	Err     error
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	return fmt.Sprintf("heyloyalty error: %s", e.Message)
}

// Unwrap returns the underlying sentinel error, if any
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemoteError reports whether err is or wraps a *RemoteError
func IsRemoteError(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr)
}

// newRemoteError builds a RemoteError from the raw "error" value.
// Heyloyalty sends either a plain string or an object with a message.
func newRemoteError(raw json.RawMessage) *RemoteError {
	e := &RemoteError{Payload: raw}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		e.Message = msg
	} else {
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
			e.Message = obj.Message
		}
	}

	if e.Message == "" {
		if len(raw) == 0 || string(raw) == "null" {
			e.Message = "unknown error"
		} else {
			e.Message = string(raw)
		}
	}

	return e
}

// APIError represents a non-2xx response without an error payload
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("heyloyalty API error: status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
