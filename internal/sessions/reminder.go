package sessions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/common/metrics"
	"divorce-wizard/internal/notify"

	"github.com/redis/go-redis/v9"
)

const reminderLockPrefix = "reminder-lock:"

// Reminder outcomes.
const (
	ReminderSent    = "sent"
	ReminderSkipped = "skipped"
	ReminderFailed  = "failed"
)

type ReminderResult struct {
	SessionID      string `json:"sessionId"`
	ReminderNumber int    `json:"reminderNumber"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
}

type ReminderReport struct {
	Checked int              `json:"checked"`
	Sent    int              `json:"sent"`
	Skipped int              `json:"skipped"`
	Failed  int              `json:"failed"`
	Results []ReminderResult `json:"results"`
}

func (r *ReminderReport) add(res ReminderResult) {
	switch res.Status {
	case ReminderSent:
		r.Sent++
	case ReminderSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
	r.Results = append(r.Results, res)
}

// ReminderJob sends at most one escalating reminder per eligible session per
// run. A Redis lock on (session, reminder number) keeps overlapping runs from
// sending the same reminder twice.
type ReminderJob struct {
	service *Service
	repo    Repository
	redis   *redis.Client
	logger  logger.Logger
}

func NewReminderJob(service *Service, repo Repository, rdb *redis.Client, log logger.Logger) *ReminderJob {
	return &ReminderJob{
		service: service,
		repo:    repo,
		redis:   rdb,
		logger:  log.WithFields(map[string]interface{}{"component": "reminder-job"}),
	}
}

func reminderLockKey(sessionID string, n int) string {
	return fmt.Sprintf("%s%s:%d", reminderLockPrefix, sessionID, n)
}

// Run processes eligible sessions sequentially.
func (j *ReminderJob) Run(ctx context.Context) (*ReminderReport, error) {
	sessions, err := j.service.ListSessionsNeedingReminder(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReminderReport{Checked: len(sessions), Results: []ReminderResult{}}
	for _, session := range sessions {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.add(j.remind(ctx, session.ID, session.Email, session.Phone, session.RemindersSent, session.ExpiresAt))
	}

	j.logger.Info("reminder run finished", map[string]interface{}{
		"checked": report.Checked,
		"sent":    report.Sent,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	})
	return report, nil
}

func (j *ReminderJob) remind(ctx context.Context, id, email, phone string, sent int, expiresAt time.Time) ReminderResult {
	n := sent + 1
	res := ReminderResult{SessionID: id, ReminderNumber: n}
	log := j.logger.WithFields(map[string]interface{}{"sessionId": id, "reminderNumber": n})

	now := j.service.now()
	key := reminderLockKey(id, n)
	locked, err := j.redis.SetNX(ctx, key, now.Format(time.RFC3339), j.lockTTL()).Result()
	if err != nil {
		log.Warn("failed to acquire reminder lock", map[string]interface{}{"error": err.Error()})
		res.Status, res.Error = ReminderFailed, err.Error()
		return res
	}
	if !locked {
		res.Status = ReminderSkipped
		return res
	}

	data := map[string]interface{}{
		"resumeUrl":      j.service.ResumeURL(id),
		"expiresAt":      expiresAt.Format("02/01/2006"),
		"reminderNumber": n,
	}

	err = j.service.notifier.Email(ctx, "reminder", email, notify.ReminderTemplate(n), data)
	if err != nil {
		log.Warn("failed to send reminder", map[string]interface{}{"error": err.Error()})
		if delErr := j.redis.Del(ctx, key).Err(); delErr != nil {
			log.Warn("failed to release reminder lock", map[string]interface{}{"error": delErr.Error()})
		}
		res.Status, res.Error = ReminderFailed, err.Error()
		return res
	}
	metrics.RemindersSent.WithLabelValues("email", strconv.Itoa(n)).Inc()

	if j.service.config.SMSReminders && phone != "" && j.service.notifier.SMSEnabled() {
		if err := j.service.notifier.SMS(ctx, phone, notify.TemplateReminderSMS, data); err != nil {
			log.Warn("failed to send reminder sms", map[string]interface{}{
				"phone": logger.MaskPhone(phone),
				"error": err.Error(),
			})
		} else {
			metrics.RemindersSent.WithLabelValues("sms", strconv.Itoa(n)).Inc()
		}
	}

	updated, err := j.repo.IncrementReminder(ctx, id, sent, now)
	if err != nil {
		log.Error("failed to record reminder", map[string]interface{}{"error": err.Error()})
		res.Status, res.Error = ReminderFailed, err.Error()
		return res
	}
	if !updated {
		log.Warn("reminder counter changed concurrently", nil)
		res.Status = ReminderSkipped
		return res
	}

	res.Status = ReminderSent
	return res
}

func (j *ReminderJob) lockTTL() time.Duration {
	if ttl := j.service.config.ReminderInterval; ttl > 0 {
		return ttl
	}
	return time.Hour
}
