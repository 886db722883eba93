// Package errors provides the structured error type returned at the HTTP boundary.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeStepLocked       ErrorCode = "STEP_LOCKED"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"

	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionExpired  ErrorCode = "SESSION_EXPIRED"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"

	ErrCodeTemplateNotFound   ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateUnresolved ErrorCode = "TEMPLATE_UNRESOLVED_TOKENS"
	ErrCodeConfiguration      ErrorCode = "CONFIGURATION_ERROR"

	ErrCodeDatabaseQueryFailed    ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeStorageUploadFailed    ErrorCode = "STORAGE_UPLOAD_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeCMSQueryFailed         ErrorCode = "CMS_QUERY_FAILED"
	ErrCodeSearchQueryFailed      ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeDocumentGeneration     ErrorCode = "DOCUMENT_GENERATION_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Fields    map[string]string      `json:"fields,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// HTTPStatus maps the error code onto the response status.
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidRequest, ErrCodeValidationFailed, ErrCodeStepLocked:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeSessionNotFound, ErrCodeNotFound, ErrCodeTemplateNotFound:
		return http.StatusNotFound
	case ErrCodeSessionExpired:
		return http.StatusGone
	case ErrCodeTemplateUnresolved:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// Error Constructors
// ==========================

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Request body could not be parsed",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError carries the field-keyed messages shown next to form inputs.
func NewValidationError(fields map[string]string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Validation failed",
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}

func NewStepLockedError(requested, maxReached int) *StandardError {
	return &StandardError{
		Code:      ErrCodeStepLocked,
		Message:   "Step is not reachable yet",
		Details:   fmt.Sprintf("requested: %d, maxReachedStep: %d", requested, maxReached),
		Timestamp: time.Now().UTC(),
	}
}

func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Unauthorized",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionExpiredError keeps the stale session so the client can still show it.
func NewSessionExpiredError(sessionID string, session interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionExpired,
		Message:   "Session has expired",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Metadata:  map[string]interface{}{"session": session},
		Timestamp: time.Now().UTC(),
	}
}

func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Timestamp: time.Now().UTC(),
	}
}

func NewTemplateNotFoundError(templateName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found",
		Details:   fmt.Sprintf("template: %s", templateName),
		Timestamp: time.Now().UTC(),
	}
}

func NewTemplateUnresolvedError(missing []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateUnresolved,
		Message:   "Template has unresolved tokens",
		Details:   strings.Join(missing, ", "),
		Metadata:  map[string]interface{}{"missing": missing},
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigurationError is fatal until an operator fixes the deployment.
func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   "Server is misconfigured",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseQueryFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseQueryFailed,
		Message:   "Database operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewStorageUploadFailedError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageUploadFailed,
		Message:   "Upload to storage failed",
		Details:   fmt.Sprintf("key: %s, error: %s", key, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewCMSQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCMSQueryFailed,
		Message:   "Content service error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Search query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDocumentGenerationError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentGeneration,
		Message:   "Document generation failed",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "TEMPLATE") || strings.Contains(codeStr, "DOCUMENT"):
		return "DOCUMENT"
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "STORAGE"):
		return "STORAGE"
	case strings.Contains(codeStr, "CMS") || strings.Contains(codeStr, "SEARCH"):
		return "CONTENT"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "STEP"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	default:
		return "OTHER"
	}
}
