// Package errors provides the error types returned at the completion service boundary.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrTransport       = errors.New("transport failure")
	ErrRemote          = errors.New("remote service failure")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrNoAPIKey        = errors.New("no API key configured")
)

// maxBodySize caps the response body kept on a RemoteError.
const maxBodySize = 4096

// TransportError represents a network call that could not complete.
type TransportError struct {
	Operation string
	Endpoint  string
	Err       error
}

func (e *TransportError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s failed at %s: %v", e.Operation, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is allows comparison with sentinel errors
func (e *TransportError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	_, ok := target.(*TransportError)
	return ok
}

// NewTransportError creates a new TransportError
func NewTransportError(operation, endpoint string, err error) *TransportError {
	return &TransportError{
		Operation: operation,
		Endpoint:  endpoint,
		Err:       err,
	}
}

// RemoteError represents a non-success response from the completion service.
type RemoteError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote error [%d] at %s", e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("remote error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Body)
}

// Is allows comparison with sentinel errors
func (e *RemoteError) Is(target error) bool {
	if target == ErrRemote {
		return true
	}
	_, ok := target.(*RemoteError)
	return ok
}

// NewRemoteError creates a new RemoteError. The body is truncated to 4KB.
func NewRemoteError(statusCode int, endpoint, body string) *RemoteError {
	if len(body) > maxBodySize {
		body = body[:maxBodySize]
	}
	return &RemoteError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Body:       body,
	}
}

// ParseError represents a success response whose body could not be read as JSON
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}

// IsTransportError reports whether err is or wraps a TransportError
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsRemoteError reports whether err is or wraps a RemoteError
func IsRemoteError(err error) bool {
	return errors.Is(err, ErrRemote)
}

// IsParseError reports whether err is or wraps a ParseError
func IsParseError(err error) bool {
	return errors.Is(err, ErrInvalidResponse)
}

// GetHTTPStatus returns the upstream status code carried by err, or 0.
func GetHTTPStatus(err error) int {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode
	}
	return 0
}

// GetResponseBody returns the upstream response body carried by err, or "".
func GetResponseBody(err error) string {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Body
	}
	return ""
}

// GetEndpoint returns the endpoint associated with err, or "".
func GetEndpoint(err error) string {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Endpoint
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Endpoint
	}
	return ""
}
