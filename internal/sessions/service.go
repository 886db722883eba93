// Package sessions persists resumable wizard sessions and sends the
// resume-link and reminder notifications attached to them.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/notify"
	"divorce-wizard/internal/wizard/validation"

	"github.com/google/uuid"
)

var (
	ErrInvalidEmail  = errors.New("INVALID_EMAIL")
	ErrInvalidStatus = errors.New("INVALID_STATUS")
	ErrEmptyPatch    = errors.New("EMPTY_PATCH")
)

const DefaultExpiry = 7 * 24 * time.Hour

// Notifier is the part of notify.Notifier sessions depend on.
type Notifier interface {
	Email(ctx context.Context, kind, to, template string, data map[string]interface{}) error
	SMS(ctx context.Context, phone, template string, data map[string]interface{}) error
	SMSEnabled() bool
}

type Config struct {
	Expiry           time.Duration
	BaseURL          string
	ReminderInterval time.Duration
	MaxReminders     int
	SMSReminders     bool
}

type Service struct {
	repo     Repository
	notifier Notifier
	config   Config
	logger   logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, cfg Config, log logger.Logger) *Service {
	if cfg.Expiry <= 0 {
		cfg.Expiry = DefaultExpiry
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		config:   cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "sessions"}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequest starts a recovery session.
type CreateRequest struct {
	Email      string             `json:"email"`
	Phone      string             `json:"phone,omitempty"`
	WizardData models.WizardState `json:"wizardState"`
}

// Create stores a new session and emails the resume link. A failed email
// does not fail the call.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.WizardSession, error) {
	email := strings.TrimSpace(req.Email)
	if !validation.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, req.Email)
	}

	phone := req.Phone
	if phone == "" {
		phone = req.WizardData.Phone
	}

	now := s.now()
	session := &models.WizardSession{
		ID:               uuid.New().String(),
		Email:            email,
		Phone:            validation.NormalizePhone(phone),
		WizardData:       req.WizardData,
		PaymentStatus:    models.PaymentPending,
		SubmissionStatus: models.SubmissionPending,
		ExpiresAt:        now.Add(s.config.Expiry),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("session created", map[string]interface{}{
		"sessionId": session.ID,
		"expiresAt": session.ExpiresAt,
	})

	if s.notifier != nil {
		err := s.notifier.Email(ctx, "resume_link", email, notify.TemplateResumeLink, s.linkData(session))
		if err != nil {
			s.logger.Warn("failed to send resume link", map[string]interface{}{
				"sessionId": session.ID,
				"error":     err.Error(),
			})
		}
	}
	return session, nil
}

// Get returns the session. An expired session is returned together with
// ErrSessionExpired so callers can still show it.
func (s *Service) Get(ctx context.Context, id string) (*models.WizardSession, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsExpiredAt(s.now()) {
		return session, fmt.Errorf("%w: %s", ErrSessionExpired, id)
	}
	return session, nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.WizardSession, error) {
	return s.Patch(ctx, id, models.SessionPatch{PaymentStatus: &status})
}

// UpdateSubmissionStatus records the status and, when given, the storage folder.
func (s *Service) UpdateSubmissionStatus(ctx context.Context, id string, status models.SubmissionStatus, folderID string) (*models.WizardSession, error) {
	patch := models.SessionPatch{SubmissionStatus: &status}
	if folderID != "" {
		patch.FolderID = &folderID
	}
	return s.Patch(ctx, id, patch)
}

func (s *Service) UpdateWizardData(ctx context.Context, id string, data models.WizardState) (*models.WizardSession, error) {
	return s.Patch(ctx, id, models.SessionPatch{WizardData: &data})
}

// Patch applies a partial update. Expired sessions are not writable.
func (s *Service) Patch(ctx context.Context, id string, patch models.SessionPatch) (*models.WizardSession, error) {
	if patch.Empty() {
		return nil, ErrEmptyPatch
	}
	if p := patch.PaymentStatus; p != nil && *p != models.PaymentPending && *p != models.PaymentPaid {
		return nil, fmt.Errorf("%w: paymentStatus %q", ErrInvalidStatus, *p)
	}
	if st := patch.SubmissionStatus; st != nil && *st != models.SubmissionPending && *st != models.SubmissionSubmitted {
		return nil, fmt.Errorf("%w: submissionStatus %q", ErrInvalidStatus, *st)
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, patch, s.now())
}

// ListSessionsNeedingReminder returns unpaid, unsubmitted, unexpired sessions
// under the reminder cap whose last reminder (or creation) is at least one
// interval old.
func (s *Service) ListSessionsNeedingReminder(ctx context.Context) ([]*models.WizardSession, error) {
	now := s.now()
	return s.repo.ListNeedingReminder(ctx, now, now.Add(-s.config.ReminderInterval), s.config.MaxReminders)
}

// PurgeExpired deletes sessions whose expiry has passed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.logger.Info("expired sessions purged", map[string]interface{}{"count": n})
	return n, nil
}

// ResumeURL is the link that reopens the wizard on a session.
func (s *Service) ResumeURL(id string) string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/wizard?session=" + url.QueryEscape(id)
}

func (s *Service) linkData(session *models.WizardSession) map[string]interface{} {
	return map[string]interface{}{
		"resumeUrl": s.ResumeURL(session.ID),
		"expiresAt": session.ExpiresAt.Format("02/01/2006"),
	}
}
