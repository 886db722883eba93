package api

import (
	"errors"
	"strings"

	apierrors "divorce-wizard/internal/common/errors"
	"divorce-wizard/internal/contact"
	"divorce-wizard/internal/content"
	"divorce-wizard/internal/documents/generate"
	"divorce-wizard/internal/documents/template"
	"divorce-wizard/internal/notify"
	"divorce-wizard/internal/sessions"
	"divorce-wizard/internal/submission"
	"divorce-wizard/internal/wizard/questions"
	"divorce-wizard/internal/wizard/state"
	"divorce-wizard/internal/wizard/validation"
)

// toStandardError maps domain sentinels onto response errors. Anything
// unrecognised becomes INTERNAL_ERROR.
func toStandardError(err error) *apierrors.StandardError {
	var stdErr *apierrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}

	var vErr *validation.Error
	if errors.As(err, &vErr) {
		return apierrors.NewValidationError(vErr.Fields)
	}

	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		return apierrors.NewSessionNotFoundError(detail(err))
	case errors.Is(err, sessions.ErrSessionExpired):
		return apierrors.NewSessionExpiredError(detail(err), nil)
	case errors.Is(err, sessions.ErrInvalidEmail),
		errors.Is(err, sessions.ErrInvalidStatus),
		errors.Is(err, sessions.ErrEmptyPatch),
		errors.Is(err, state.ErrUnknownAction),
		errors.Is(err, state.ErrUnknownClaim),
		errors.Is(err, state.ErrClaimNotSelected),
		errors.Is(err, state.ErrStepOutOfRange):
		return apierrors.NewInvalidRequestError(err.Error())
	case errors.Is(err, sessions.ErrDatabaseQueryFailed):
		return apierrors.NewDatabaseQueryFailedError("sessions", err)

	case errors.Is(err, template.ErrTemplateNotFound):
		return apierrors.NewTemplateNotFoundError(detail(err))
	case errors.Is(err, template.ErrUnresolvedTokens):
		return apierrors.NewTemplateUnresolvedError(strings.Split(detail(err), ", "))
	case errors.Is(err, generate.ErrProviderKeyMissing):
		return apierrors.NewConfigurationError("document summary provider key is not configured")
	case errors.Is(err, generate.ErrFontMissing):
		return apierrors.NewConfigurationError("form overlay font is not configured")
	case errors.Is(err, generate.ErrGenerationFailed):
		return apierrors.NewDocumentGenerationError(err)
	case errors.Is(err, questions.ErrUnknownClaim):
		return apierrors.NewNotFoundError("claim", detail(err))

	case errors.Is(err, submission.ErrSnapshotUploadFailed),
		errors.Is(err, submission.ErrStorageUploadFailed):
		return apierrors.NewStorageUploadFailedError(detail(err), err)
	case errors.Is(err, contact.ErrOfficeNotification),
		errors.Is(err, notify.ErrNotificationSendFailed):
		return apierrors.NewNotificationSendFailedError("email", err)

	case errors.Is(err, content.ErrPostNotFound):
		return apierrors.NewNotFoundError("post", detail(err))
	case errors.Is(err, content.ErrCMSQueryFailed):
		return apierrors.NewCMSQueryFailedError(err)
	case errors.Is(err, content.ErrSearchQueryFailed),
		errors.Is(err, content.ErrSearchUnavailable):
		return apierrors.NewSearchQueryFailedError(err)
	}
	return apierrors.NewInternalError(err)
}

// detail strips the leading sentinel code from a wrapped error message.
func detail(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return strings.Trim(msg[i+2:], `"`)
	}
	return msg
}
