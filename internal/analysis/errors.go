package analysis

import (
	"errors"
	"fmt"
)

// Standard errors returned by the analysis client.
var (
	// ErrNotStarted indicates the client has not been started.
	ErrNotStarted = errors.New("analysis client not started")

	// ErrAlreadyStarted indicates the client is already running.
	ErrAlreadyStarted = errors.New("analysis client already started")

	// ErrShutdown indicates the client has been shut down.
	ErrShutdown = errors.New("analysis client shut down")

	// ErrServerNotReady indicates the server is not ready for requests.
	ErrServerNotReady = errors.New("analysis server not ready")

	// ErrHandshakeTimeout indicates the server never announced itself.
	ErrHandshakeTimeout = errors.New("timed out waiting for server.connected")

	// ErrServerCrashed indicates the server process terminated unexpectedly.
	ErrServerCrashed = errors.New("analysis server crashed")

	// ErrInvalidResponse indicates a malformed response from the server.
	ErrInvalidResponse = errors.New("invalid response from analysis server")
)

// Request error codes reported by the analysis server.
const (
	CodeServerError           = "SERVER_ERROR"
	CodeUnknownRequest        = "UNKNOWN_REQUEST"
	CodeInvalidFilePathFormat = "INVALID_FILE_PATH_FORMAT"
	CodeRefactoringCancelled  = "REFACTORING_REQUEST_CANCELLED"
	CodeFormatWithErrors      = "FORMAT_WITH_ERRORS"
)

// RequestError is a structured error reported by the server in a
// response envelope.
type RequestError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StackTrace string `json:"stackTrace,omitempty"`
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("analysis request failed (%s): %s", e.Code, e.Message)
}

// IsServerError reports whether the error is a server-side internal
// failure rather than a bad request.
func (e *RequestError) IsServerError() bool {
	return e.Code == CodeServerError
}

// ServerFault wraps an error with the server command it came from.
type ServerFault struct {
	Command string
	Err     error
}

// Error implements the error interface.
func (e *ServerFault) Error() string {
	return fmt.Sprintf("server %s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServerFault) Unwrap() error {
	return e.Err
}
