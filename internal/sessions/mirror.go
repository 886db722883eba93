package sessions

import (
	"context"

	"divorce-wizard/internal/models"
	"divorce-wizard/internal/wizard/validation"
)

// SessionWriter is the part of Service a Mirror needs.
type SessionWriter interface {
	Create(ctx context.Context, req CreateRequest) (*models.WizardSession, error)
	UpdateWizardData(ctx context.Context, id string, data models.WizardState) (*models.WizardSession, error)
}

// Mirror keeps a recovery session in step with a wizard state. The first
// state carrying a valid contact email creates the session; later ones
// update it.
type Mirror struct {
	service   SessionWriter
	sessionID string
}

func NewMirror(service SessionWriter, sessionID string) *Mirror {
	return &Mirror{service: service, sessionID: sessionID}
}

// SessionID is empty until a session has been created or given.
func (m *Mirror) SessionID() string {
	return m.sessionID
}

func (m *Mirror) Mirror(ctx context.Context, state *models.WizardState) error {
	if m.sessionID == "" {
		if !validation.IsValidEmail(state.ContactEmail()) {
			return nil
		}
		session, err := m.service.Create(ctx, CreateRequest{
			Email:      state.ContactEmail(),
			Phone:      state.Phone,
			WizardData: *state,
		})
		if err != nil {
			return err
		}
		m.sessionID = session.ID
		return nil
	}
	_, err := m.service.UpdateWizardData(ctx, m.sessionID, *state)
	return err
}
