// internal/models/session.go
package models

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionSubmitted SubmissionStatus = "submitted"
)

// WizardSession is a persisted, resumable snapshot of a wizard.
type WizardSession struct {
	ID               string           `json:"id" db:"id"`
	Email            string           `json:"email" db:"email"`
	Phone            string           `json:"phone,omitempty" db:"phone"`
	WizardData       WizardState      `json:"wizardData" db:"wizard_data"`
	PaymentStatus    PaymentStatus    `json:"paymentStatus" db:"payment_status"`
	SubmissionStatus SubmissionStatus `json:"submissionStatus" db:"submission_status"`
	FolderID         string           `json:"folderId,omitempty" db:"folder_id"`
	ExpiresAt        time.Time        `json:"expiresAt" db:"expires_at"`
	RemindersSent    int              `json:"remindersSent" db:"reminders_sent"`
	LastReminderAt   *time.Time       `json:"lastReminderAt,omitempty" db:"last_reminder_at"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt" db:"updated_at"`
}

// IsExpiredAt reports whether the session is past its expiry at now.
func (s *WizardSession) IsExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionPatch is a partial update; nil fields are left unchanged.
type SessionPatch struct {
	PaymentStatus    *PaymentStatus    `json:"paymentStatus,omitempty"`
	SubmissionStatus *SubmissionStatus `json:"submissionStatus,omitempty"`
	FolderID         *string           `json:"folderId,omitempty"`
	WizardData       *WizardState      `json:"wizardData,omitempty"`
}

func (p SessionPatch) Empty() bool {
	return p.PaymentStatus == nil && p.SubmissionStatus == nil && p.FolderID == nil && p.WizardData == nil
}
