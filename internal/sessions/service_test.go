package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repository, n Notifier) *Service {
	svc := NewService(repo, n, Config{
		BaseURL:          "https://wizard.example.com/",
		ReminderInterval: 24 * time.Hour,
		MaxReminders:     3,
		SMSReminders:     true,
	}, logger.NewTestLogger(t))
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestService_Create(t *testing.T) {
	var stored *models.WizardSession
	repo := &MockRepository{CreateFunc: func(ctx context.Context, s *models.WizardSession) error {
		stored = s
		return nil
	}}
	n := &MockNotifier{}
	svc := newTestService(t, repo, n)

	s, err := svc.Create(context.Background(), CreateRequest{
		Email:      " dana@example.com ",
		WizardData: models.WizardState{Phone: "050-123-4567"},
	})
	require.NoError(t, err)
	require.Same(t, stored, s)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "dana@example.com", s.Email)
	assert.Equal(t, "0501234567", s.Phone)
	assert.Equal(t, fixedNow.Add(DefaultExpiry), s.ExpiresAt)
	assert.Equal(t, models.PaymentPending, s.PaymentStatus)
	assert.Equal(t, models.SubmissionPending, s.SubmissionStatus)

	require.Len(t, n.emails, 1)
	assert.Equal(t, notify.TemplateResumeLink, n.emails[0].template)
	assert.Equal(t, "https://wizard.example.com/wizard?session="+s.ID, n.emails[0].data["resumeUrl"])
}

func TestService_Create_InvalidEmail(t *testing.T) {
	svc := newTestService(t, &MockRepository{CreateFunc: func(context.Context, *models.WizardSession) error {
		t.Fatal("repository must not be called")
		return nil
	}}, &MockNotifier{})

	for _, email := range []string{"", "not-an-email", "a b@example.com"} {
		_, err := svc.Create(context.Background(), CreateRequest{Email: email})
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
}

func TestService_Create_EmailFailureIsWarning(t *testing.T) {
	svc := newTestService(t, &MockRepository{}, &MockNotifier{EmailErr: errors.New("ses down")})

	s, err := svc.Create(context.Background(), CreateRequest{Email: "dana@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
}

func TestService_Get(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		status    models.SubmissionStatus
		wantErr   error
	}{
		{"active", fixedNow.Add(time.Hour), models.SubmissionPending, nil},
		{"expired while pending", fixedNow.Add(-time.Second), models.SubmissionPending, ErrSessionExpired},
		{"expired after submit", fixedNow.Add(-time.Hour), models.SubmissionSubmitted, ErrSessionExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockRepository{GetFunc: func(ctx context.Context, id string) (*models.WizardSession, error) {
				return &models.WizardSession{ID: id, ExpiresAt: tt.expiresAt, SubmissionStatus: tt.status}, nil
			}}
			svc := newTestService(t, repo, nil)

			s, err := svc.Get(context.Background(), "s1")
			require.NotNil(t, s, "stale session is still returned")
			assert.Equal(t, "s1", s.ID)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestService_Get_NotFound(t *testing.T) {
	repo := &MockRepository{GetFunc: func(ctx context.Context, id string) (*models.WizardSession, error) {
		return nil, ErrSessionNotFound
	}}
	s, err := newTestService(t, repo, nil).Get(context.Background(), "x")
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_Patch(t *testing.T) {
	active := &models.WizardSession{ID: "s1", ExpiresAt: fixedNow.Add(time.Hour)}
	var gotPatch models.SessionPatch
	repo := &MockRepository{
		GetFunc: func(ctx context.Context, id string) (*models.WizardSession, error) { return active, nil },
		UpdateFunc: func(ctx context.Context, id string, patch models.SessionPatch, now time.Time) (*models.WizardSession, error) {
			gotPatch = patch
			assert.Equal(t, fixedNow, now)
			return active, nil
		},
	}
	svc := newTestService(t, repo, nil)

	_, err := svc.UpdateSubmissionStatus(context.Background(), "s1", models.SubmissionSubmitted, "folder-9")
	require.NoError(t, err)
	require.NotNil(t, gotPatch.FolderID)
	assert.Equal(t, "folder-9", *gotPatch.FolderID)
	assert.Equal(t, models.SubmissionSubmitted, *gotPatch.SubmissionStatus)
	assert.Nil(t, gotPatch.PaymentStatus)

	_, err = svc.Patch(context.Background(), "s1", models.SessionPatch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)

	_, err = svc.UpdatePaymentStatus(context.Background(), "s1", "refunded")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_Patch_ExpiredRejected(t *testing.T) {
	repo := &MockRepository{
		GetFunc: func(ctx context.Context, id string) (*models.WizardSession, error) {
			return &models.WizardSession{ID: id, ExpiresAt: fixedNow.Add(-time.Hour)}, nil
		},
		UpdateFunc: func(context.Context, string, models.SessionPatch, time.Time) (*models.WizardSession, error) {
			t.Fatal("expired session must not be updated")
			return nil, nil
		},
	}
	_, err := newTestService(t, repo, nil).UpdateWizardData(context.Background(), "s1", models.WizardState{})
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestService_ListSessionsNeedingReminder(t *testing.T) {
	repo := &MockRepository{ListNeedingReminderFunc: func(ctx context.Context, now, before time.Time, max int) ([]*models.WizardSession, error) {
		assert.Equal(t, fixedNow, now)
		assert.Equal(t, fixedNow.Add(-24*time.Hour), before)
		assert.Equal(t, 3, max)
		return nil, nil
	}}
	_, err := newTestService(t, repo, nil).ListSessionsNeedingReminder(context.Background())
	require.NoError(t, err)
}

func TestService_PurgeExpired(t *testing.T) {
	repo := &MockRepository{DeleteExpiredFunc: func(ctx context.Context, before time.Time) (int64, error) {
		assert.Equal(t, fixedNow, before)
		return 2, nil
	}}
	n, err := newTestService(t, repo, nil).PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMirror(t *testing.T) {
	var created, updated int
	repo := &MockRepository{
		CreateFunc: func(ctx context.Context, s *models.WizardSession) error { created++; return nil },
		GetFunc: func(ctx context.Context, id string) (*models.WizardSession, error) {
			return &models.WizardSession{ID: id, ExpiresAt: fixedNow.Add(time.Hour)}, nil
		},
		UpdateFunc: func(ctx context.Context, id string, patch models.SessionPatch, now time.Time) (*models.WizardSession, error) {
			updated++
			require.NotNil(t, patch.WizardData)
			assert.Equal(t, models.StepClaims, patch.WizardData.CurrentStep)
			return &models.WizardSession{ID: id}, nil
		},
	}
	m := NewMirror(newTestService(t, repo, &MockNotifier{}), "")

	state := &models.WizardState{}
	require.NoError(t, m.Mirror(context.Background(), state))
	assert.Empty(t, m.SessionID(), "no session before an email is known")
	assert.Zero(t, created)

	state.BasicInfo.Email = "dana@example.com"
	require.NoError(t, m.Mirror(context.Background(), state))
	assert.NotEmpty(t, m.SessionID())

	state.CurrentStep = models.StepClaims
	require.NoError(t, m.Mirror(context.Background(), state))
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, updated)
}
