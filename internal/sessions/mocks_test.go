package sessions

import (
	"context"
	"sync"
	"time"

	"divorce-wizard/internal/models"
)

type MockRepository struct {
	CreateFunc              func(ctx context.Context, s *models.WizardSession) error
	GetFunc                 func(ctx context.Context, id string) (*models.WizardSession, error)
	UpdateFunc              func(ctx context.Context, id string, patch models.SessionPatch, now time.Time) (*models.WizardSession, error)
	ListNeedingReminderFunc func(ctx context.Context, now, before time.Time, max int) ([]*models.WizardSession, error)
	IncrementReminderFunc   func(ctx context.Context, id string, expected int, at time.Time) (bool, error)
	DeleteExpiredFunc       func(ctx context.Context, before time.Time) (int64, error)
}

func (m *MockRepository) Create(ctx context.Context, s *models.WizardSession) error {
	if m.CreateFunc == nil {
		return nil
	}
	return m.CreateFunc(ctx, s)
}

func (m *MockRepository) Get(ctx context.Context, id string) (*models.WizardSession, error) {
	return m.GetFunc(ctx, id)
}

func (m *MockRepository) Update(ctx context.Context, id string, patch models.SessionPatch, now time.Time) (*models.WizardSession, error) {
	return m.UpdateFunc(ctx, id, patch, now)
}

func (m *MockRepository) ListNeedingReminder(ctx context.Context, now, before time.Time, max int) ([]*models.WizardSession, error) {
	return m.ListNeedingReminderFunc(ctx, now, before, max)
}

func (m *MockRepository) IncrementReminder(ctx context.Context, id string, expected int, at time.Time) (bool, error) {
	return m.IncrementReminderFunc(ctx, id, expected, at)
}

func (m *MockRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return m.DeleteExpiredFunc(ctx, before)
}

type sentNotification struct {
	kind     string
	to       string
	template string
	data     map[string]interface{}
}

type MockNotifier struct {
	mu        sync.Mutex
	EmailErr  error
	SMSErr    error
	SMSOn     bool
	emails    []sentNotification
	smsSentTo []string
}

func (m *MockNotifier) Email(ctx context.Context, kind, to, template string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EmailErr != nil {
		return m.EmailErr
	}
	m.emails = append(m.emails, sentNotification{kind: kind, to: to, template: template, data: data})
	return nil
}

func (m *MockNotifier) SMS(ctx context.Context, phone, template string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SMSErr != nil {
		return m.SMSErr
	}
	m.smsSentTo = append(m.smsSentTo, phone)
	return nil
}

func (m *MockNotifier) SMSEnabled() bool {
	return m.SMSOn
}
