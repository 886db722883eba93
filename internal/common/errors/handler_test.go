package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	warns  []string
	errors []string
}

func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.errors = append(l.errors, msg)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStandardError_HTTPStatus(t *testing.T) {
	tests := []struct {
		err    *StandardError
		status int
	}{
		{NewValidationError(map[string]string{"idNumber": "bad"}), http.StatusBadRequest},
		{NewStepLockedError(4, 1), http.StatusBadRequest},
		{NewUnauthorizedError("missing bearer"), http.StatusUnauthorized},
		{NewSessionNotFoundError("abc"), http.StatusNotFound},
		{NewTemplateNotFoundError("claim-x"), http.StatusNotFound},
		{NewSessionExpiredError("abc", nil), http.StatusGone},
		{NewConfigurationError("api key missing"), http.StatusInternalServerError},
		{NewStorageUploadFailedError("k", fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
}

func TestErrorHandler_Write_Validation(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log, false)
	rec := httptest.NewRecorder()

	h.Write(rec, httptest.NewRequest(http.MethodPost, "/api/submission", nil),
		NewValidationError(map[string]string{"idNumber": "מספר תעודת זהות אינו תקין"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
	assert.Contains(t, errBody["fields"], "idNumber")
	assert.Len(t, log.warns, 1)
	assert.Empty(t, log.errors)
}

func TestErrorHandler_Write_HidesUpstreamDetails(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log, false)
	rec := httptest.NewRecorder()

	h.Write(rec, httptest.NewRequest(http.MethodPost, "/api/contact", nil),
		NewNotificationSendFailedError("office", fmt.Errorf("smtp: 535 auth failed for user x")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errBody := decode(t, rec)["error"].(map[string]interface{})
	assert.NotContains(t, errBody, "details")
	assert.Len(t, log.errors, 1)
}

func TestErrorHandler_Write_ExpiredSessionIncludesBody(t *testing.T) {
	h := NewErrorHandler(nil, true)
	rec := httptest.NewRecorder()

	h.Write(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/abc", nil),
		NewSessionExpiredError("abc", map[string]interface{}{"id": "abc"}))

	assert.Equal(t, http.StatusGone, rec.Code)
	body := decode(t, rec)
	session := body["session"].(map[string]interface{})
	assert.Equal(t, "abc", session["id"])
}

func TestNormalize_WrapsPlainErrors(t *testing.T) {
	stdErr := Normalize(fmt.Errorf("wrapped: %w", NewSessionNotFoundError("x")))
	assert.Equal(t, ErrCodeSessionNotFound, stdErr.Code)

	plain := Normalize(fmt.Errorf("kaboom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "kaboom", plain.Details)
}
