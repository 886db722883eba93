// internal/common/errors/handler.go
package errors

import (
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// ErrorHandler writes errors as the JSON envelope
// {"success":false,"error":{"code","message","fields"}}.
type ErrorHandler struct {
	logger        Logger
	exposeDetails bool
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type errorBody struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorEnvelope struct {
	Success bool        `json:"success"`
	Error   errorBody   `json:"error"`
	Session interface{} `json:"session,omitempty"`
}

// NewErrorHandler builds a handler. Upstream details are only echoed to
// clients when exposeDetails is set (non-production).
func NewErrorHandler(logger Logger, exposeDetails bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, exposeDetails: exposeDetails}
}

// Write normalizes err, logs it and writes the response.
func (h *ErrorHandler) Write(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := Normalize(err)
	status := stdErr.HTTPStatus()

	h.logError(r, stdErr, status)

	body := errorBody{
		Code:    stdErr.Code,
		Message: stdErr.Message,
		Fields:  stdErr.Fields,
	}
	if h.exposeDetails || status < http.StatusInternalServerError {
		body.Details = stdErr.Details
	}

	envelope := errorEnvelope{Error: body}
	if stdErr.Code == ErrCodeSessionExpired && stdErr.Metadata != nil {
		envelope.Session = stdErr.Metadata["session"]
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

// Normalize ensures we always have a StandardError
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

func (h *ErrorHandler) logError(r *http.Request, stdErr *StandardError, status int) {
	if h.logger == nil {
		return
	}
	fields := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"status":        status,
	}
	if r != nil {
		fields["method"] = r.Method
		fields["path"] = r.URL.Path
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields)
		return
	}
	h.logger.Warn("request rejected", fields)
}
