// Package contact handles the public contact form.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/common/zoho"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/notify"
	"divorce-wizard/internal/wizard/validation"
)

var ErrOfficeNotification = errors.New("CONTACT_OFFICE_NOTIFICATION_FAILED")

const leadSource = "Website"

type Notifier interface {
	EmailWithReplyTo(ctx context.Context, kind, to, replyTo, template string, data map[string]interface{}) error
}

// LeadCreator pushes an enquiry into the CRM. zoho.CRMClient satisfies it.
type LeadCreator interface {
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
}

// Result reports what happened beyond the office email.
type Result struct {
	AutoReplySent bool   `json:"autoReplySent"`
	LeadID        string `json:"leadId,omitempty"`
}

type Service struct {
	validator   *validation.Validator
	notifier    Notifier
	crm         LeadCreator
	officeEmail string
	locale      string
	log         logger.Logger
}

// NewService builds the contact service. crm may be nil when CRM sync is off.
func NewService(v *validation.Validator, n Notifier, crm LeadCreator, officeEmail, locale string, log logger.Logger) *Service {
	return &Service{validator: v, notifier: n, crm: crm, officeEmail: officeEmail, locale: locale, log: log}
}

// Submit emails the office and, best effort, auto-replies and records a lead.
func (s *Service) Submit(ctx context.Context, req models.ContactRequest) (*Result, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = validation.NormalizePhone(req.Phone)
	req.Message = strings.TrimSpace(req.Message)

	locale := req.Locale
	if locale == "" {
		locale = s.locale
	}
	if err := s.validator.Contact(req, locale).Err(models.StepBasicInfo); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"name":    req.Name,
		"phone":   req.Phone,
		"email":   req.Email,
		"message": req.Message,
	}

	if err := s.notifier.EmailWithReplyTo(ctx, "contact_office", s.officeEmail, req.Email, notify.TemplateContactOffice, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOfficeNotification, err)
	}

	result := &Result{}
	if err := s.notifier.EmailWithReplyTo(ctx, "contact_autoreply", req.Email, s.officeEmail, notify.TemplateContactAutoReply, data); err != nil {
		s.log.Warn("contact auto-reply failed", map[string]interface{}{"error": err.Error()})
	} else {
		result.AutoReplySent = true
	}

	if s.crm != nil {
		first, last := zoho.SplitName(req.Name)
		id, err := s.crm.CreateLead(ctx, &zoho.Lead{
			Email:       req.Email,
			FirstName:   first,
			LastName:    last,
			Phone:       req.Phone,
			Description: req.Message,
			Source:      leadSource,
		})
		if err != nil {
			s.log.Warn("failed to create CRM lead", map[string]interface{}{"error": err.Error()})
		} else {
			result.LeadID = id
		}
	}

	s.log.Info("contact request handled", map[string]interface{}{
		"from":          logger.MaskEmail(req.Email),
		"autoReplySent": result.AutoReplySent,
		"leadCreated":   result.LeadID != "",
	})
	return result, nil
}
