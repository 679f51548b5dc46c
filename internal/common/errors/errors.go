// Package errors provides standardized error handling for the fulfillment pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidDateFormat       ErrorCode = "INVALID_DATE_FORMAT"
	ErrCodeUpstreamClientError     ErrorCode = "UPSTREAM_CLIENT_ERROR"
	ErrCodeUpstreamServerError     ErrorCode = "UPSTREAM_SERVER_ERROR"
	ErrCodeMalformedResponse       ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeUnknownTool             ErrorCode = "UNKNOWN_TOOL"
	ErrCodeDocumentAssemblyFailure ErrorCode = "DOCUMENT_ASSEMBLY_FAILURE"
	ErrCodeInvalidToolArguments    ErrorCode = "INVALID_TOOL_ARGUMENTS"
	ErrCodeModelCallFailed         ErrorCode = "MODEL_CALL_FAILED"
	ErrCodeSessionStoreFailed      ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeArchiveFailed           ErrorCode = "ARCHIVE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidDateFormatError signals a malformed date token from the model.
// Normalization does not recover from it; the caller surfaces it as a failed
// tool turn.
func NewInvalidDateFormatError(value, expected string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidDateFormat,
		Message:   "Invalid date format in filter",
		Details:   fmt.Sprintf("expected %s, got %q", expected, value),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamClientError records a 4xx from the order-management API.
// Never retried automatically.
func NewUpstreamClientError(endpoint string, status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamClientError,
		Message:   "Order API rejected the request",
		Details:   fmt.Sprintf("endpoint: %s, status: %d, body: %s", endpoint, status, body),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamServerError records a 5xx or otherwise unexpected status.
// Never retried automatically.
func NewUpstreamServerError(endpoint string, status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamServerError,
		Message:   "Order API returned an unexpected status",
		Details:   fmt.Sprintf("endpoint: %s, status: %d, body: %s", endpoint, status, body),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedResponseError records a non-JSON or incomplete upstream body.
func NewMalformedResponseError(endpoint string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedResponse,
		Message:   "Order API response could not be parsed",
		Details:   fmt.Sprintf("endpoint: %s, error: %s", endpoint, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownToolError is terminal: the model requested an unregistered tool.
func NewUnknownToolError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownTool,
		Message:   "Model requested an unknown tool",
		Details:   fmt.Sprintf("tool: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDocumentAssemblyFailureError stops only the affected pipeline stage.
func NewDocumentAssemblyFailureError(stage, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentAssemblyFailure,
		Message:   "Bulk document retrieval did not return a PDF",
		Details:   fmt.Sprintf("stage: %s, %s", stage, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidToolArgumentsError records tool arguments failing schema validation.
func NewInvalidToolArgumentsError(tool, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidToolArguments,
		Message:   "Tool arguments failed schema validation",
		Details:   fmt.Sprintf("tool: %s, %s", tool, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelCallFailedError wraps a failed language-model call.
func NewModelCallFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelCallFailed,
		Message:   "Language model call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreFailedError wraps a chat/session store failure.
func NewSessionStoreFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Session store operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewArchiveFailedError wraps an archive-store failure.
func NewArchiveFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeArchiveFailed,
		Message:   "Archive operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// HasCode reports whether err is a StandardError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// CodeOf extracts the error code, or empty when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}
