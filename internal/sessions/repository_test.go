package sessions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"divorce-wizard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "email", "phone", "wizard_data", "payment_status", "submission_status", "folder_id",
	"expires_at", "reminders_sent", "last_reminder_at", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func sessionRow(id string, created time.Time, lastReminder interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(columns).AddRow(
		id, "dana@example.com", "0501234567",
		[]byte(`{"currentStep":2,"maxReachedStep":2,"basicInfo":{"fullName":"דנה כהן"},"selectedClaims":["property"],"payment":{"paid":false}}`),
		"pending", "pending", "",
		created.Add(DefaultExpiry), 1, lastReminder, created, created,
	)
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO wizard_sessions`).
		WithArgs("s1", "dana@example.com", "", sqlmock.AnyArg(), "pending", "pending", "", now.Add(DefaultExpiry), 0, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.WizardSession{
		ID:               "s1",
		Email:            "dana@example.com",
		PaymentStatus:    models.PaymentPending,
		SubmissionStatus: models.SubmissionPending,
		ExpiresAt:        now.Add(DefaultExpiry),
		CreatedAt:        now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Create_Failure(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO wizard_sessions`).WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &models.WizardSession{ID: "s1"})
	assert.ErrorIs(t, err, ErrDatabaseQueryFailed)
}

func TestPostgresRepository_Get(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	last := created.Add(24 * time.Hour)

	mock.ExpectQuery(`SELECT (.+) FROM wizard_sessions WHERE id = \$1`).
		WithArgs("s1").
		WillReturnRows(sessionRow("s1", created, last))

	s, err := repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, models.StepClaimForms, s.WizardData.CurrentStep)
	assert.Equal(t, "דנה כהן", s.WizardData.BasicInfo.FullName)
	assert.Equal(t, []models.ClaimType{models.ClaimProperty}, s.WizardData.SelectedClaims)
	assert.Equal(t, models.PaymentPending, s.PaymentStatus)
	require.NotNil(t, s.LastReminderAt)
	assert.True(t, last.Equal(*s.LastReminderAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Get_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT (.+) FROM wizard_sessions WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPostgresRepository_Update(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	paid := models.PaymentPaid
	folder := "folder-1"

	mock.ExpectQuery(`UPDATE wizard_sessions SET payment_status = \$1, folder_id = \$2, updated_at = \$3 WHERE id = \$4 RETURNING`).
		WithArgs("paid", "folder-1", now, "s1").
		WillReturnRows(sessionRow("s1", now, nil))

	s, err := repo.Update(context.Background(), "s1", models.SessionPatch{PaymentStatus: &paid, FolderID: &folder}, now)
	require.NoError(t, err)
	assert.Nil(t, s.LastReminderAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Update_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	submitted := models.SubmissionSubmitted

	mock.ExpectQuery(`UPDATE wizard_sessions SET submission_status = \$1, updated_at = \$2 WHERE id = \$3`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), "nope", models.SessionPatch{SubmissionStatus: &submitted}, time.Now())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPostgresRepository_ListNeedingReminder(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	before := now.Add(-24 * time.Hour)

	rows := sessionRow("s1", now.Add(-72*time.Hour), nil)
	rows.AddRow("s2", "b@example.com", "", []byte(`{}`), "pending", "pending", "",
		now.Add(time.Hour), 0, nil, now.Add(-48*time.Hour), now.Add(-48*time.Hour))

	mock.ExpectQuery(`SELECT (.+) FROM wizard_sessions\s+WHERE submission_status = 'pending'`).
		WithArgs(now, 3, before).
		WillReturnRows(rows)

	list, err := repo.ListNeedingReminder(context.Background(), now, before, 3)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_IncrementReminder(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"counter matched", 1, true},
		{"counter moved", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			at := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

			mock.ExpectExec(`UPDATE wizard_sessions\s+SET reminders_sent = reminders_sent \+ 1`).
				WithArgs(at, "s1", 1).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.IncrementReminder(context.Background(), "s1", 1, at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestPostgresRepository_DeleteExpired(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM wizard_sessions WHERE expires_at < \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
