package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"divorce-wizard/internal/models"

	json "github.com/goccy/go-json"
)

var (
	ErrSessionNotFound     = errors.New("SESSION_NOT_FOUND")
	ErrSessionExpired      = errors.New("SESSION_EXPIRED")
	ErrDatabaseQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

// Repository persists wizard sessions.
type Repository interface {
	Create(ctx context.Context, session *models.WizardSession) error
	Get(ctx context.Context, id string) (*models.WizardSession, error)
	Update(ctx context.Context, id string, patch models.SessionPatch, now time.Time) (*models.WizardSession, error)
	ListNeedingReminder(ctx context.Context, now, remindBefore time.Time, maxReminders int) ([]*models.WizardSession, error)
	// IncrementReminder bumps the counter only if it still equals expected.
	IncrementReminder(ctx context.Context, id string, expected int, at time.Time) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

const sessionColumns = `id, email, phone, wizard_data, payment_status, submission_status, folder_id,
	expires_at, reminders_sent, last_reminder_at, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.WizardSession) error {
	wizardData, err := json.Marshal(s.WizardData)
	if err != nil {
		return fmt.Errorf("%w: marshal wizard data: %v", ErrDatabaseQueryFailed, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO wizard_sessions (
			id, email, phone, wizard_data, payment_status, submission_status,
			folder_id, expires_at, reminders_sent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		s.ID, s.Email, s.Phone, wizardData, string(s.PaymentStatus), string(s.SubmissionStatus),
		s.FolderID, s.ExpiresAt, s.RemindersSent, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert session: %v", ErrDatabaseQueryFailed, err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.WizardSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM wizard_sessions WHERE id = $1`, id)
	return scanSession(row, id)
}

func (r *PostgresRepository) Update(ctx context.Context, id string, patch models.SessionPatch, now time.Time) (*models.WizardSession, error) {
	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.PaymentStatus != nil {
		add("payment_status", string(*patch.PaymentStatus))
	}
	if patch.SubmissionStatus != nil {
		add("submission_status", string(*patch.SubmissionStatus))
	}
	if patch.FolderID != nil {
		add("folder_id", *patch.FolderID)
	}
	if patch.WizardData != nil {
		wizardData, err := json.Marshal(patch.WizardData)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal wizard data: %v", ErrDatabaseQueryFailed, err)
		}
		add("wizard_data", wizardData)
	}
	add("updated_at", now)

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE wizard_sessions SET %s WHERE id = $%d RETURNING `+sessionColumns,
		strings.Join(sets, ", "), len(args))

	return scanSession(r.db.QueryRowContext(ctx, query, args...), id)
}

func (r *PostgresRepository) ListNeedingReminder(ctx context.Context, now, remindBefore time.Time, maxReminders int) ([]*models.WizardSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM wizard_sessions
		WHERE submission_status = 'pending'
		  AND payment_status = 'pending'
		  AND expires_at > $1
		  AND reminders_sent < $2
		  AND COALESCE(last_reminder_at, created_at) <= $3
		ORDER BY created_at`,
		now, maxReminders, remindBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list reminder sessions: %v", ErrDatabaseQueryFailed, err)
	}
	defer rows.Close()

	var out []*models.WizardSession
	for rows.Next() {
		s, err := scanSession(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate sessions: %v", ErrDatabaseQueryFailed, err)
	}
	return out, nil
}

func (r *PostgresRepository) IncrementReminder(ctx context.Context, id string, expected int, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wizard_sessions
		SET reminders_sent = reminders_sent + 1, last_reminder_at = $1, updated_at = $1
		WHERE id = $2 AND reminders_sent = $3`,
		at, id, expected,
	)
	if err != nil {
		return false, fmt.Errorf("%w: increment reminder: %v", ErrDatabaseQueryFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %v", ErrDatabaseQueryFailed, err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired: %v", ErrDatabaseQueryFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", ErrDatabaseQueryFailed, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner, id string) (*models.WizardSession, error) {
	var (
		s              models.WizardSession
		wizardData     []byte
		paymentStatus  string
		submission     string
		lastReminderAt sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.Email, &s.Phone, &wizardData, &paymentStatus, &submission, &s.FolderID,
		&s.ExpiresAt, &s.RemindersSent, &lastReminderAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("%w: scan session: %v", ErrDatabaseQueryFailed, err)
	}

	if len(wizardData) > 0 {
		if err := json.Unmarshal(wizardData, &s.WizardData); err != nil {
			return nil, fmt.Errorf("%w: decode wizard data: %v", ErrDatabaseQueryFailed, err)
		}
	}
	s.PaymentStatus = models.PaymentStatus(paymentStatus)
	s.SubmissionStatus = models.SubmissionStatus(submission)
	if lastReminderAt.Valid {
		t := lastReminderAt.Time
		s.LastReminderAt = &t
	}
	return &s, nil
}
