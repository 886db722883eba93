package notify

import (
	"context"

	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/common/metrics"
)

// Notifier renders templates and hands them to the configured transports.
type Notifier struct {
	mailer    Mailer
	sms       *SMSSender
	templates *Templates
	firmName  string
	logger    logger.Logger
}

// NewNotifier builds a notifier. sms may be nil when SMS is disabled.
func NewNotifier(mailer Mailer, sms *SMSSender, templates *Templates, firmName string, log logger.Logger) *Notifier {
	return &Notifier{
		mailer:    mailer,
		sms:       sms,
		templates: templates,
		firmName:  firmName,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// Email renders the template and sends it. kind labels the metric.
func (n *Notifier) Email(ctx context.Context, kind, to, template string, data map[string]interface{}) error {
	return n.EmailWithReplyTo(ctx, kind, to, "", template, data)
}

func (n *Notifier) EmailWithReplyTo(ctx context.Context, kind, to, replyTo, template string, data map[string]interface{}) error {
	subject, body, err := n.templates.Render(template, n.withDefaults(data))
	if err != nil {
		return err
	}

	err = n.mailer.Send(ctx, Message{To: to, ReplyTo: replyTo, Subject: subject, HTML: body})
	if err != nil {
		metrics.EmailsSent.WithLabelValues(kind, "failed").Inc()
		return err
	}

	metrics.EmailsSent.WithLabelValues(kind, "sent").Inc()
	n.logger.Debug("email sent", map[string]interface{}{
		"kind":     kind,
		"template": template,
		"to":       logger.MaskEmail(to),
	})
	return nil
}

// SMS renders the template body as plain text and sends it.
func (n *Notifier) SMS(ctx context.Context, phone, template string, data map[string]interface{}) error {
	if n.sms == nil {
		return ErrSMSDisabled
	}
	text, err := n.templates.RenderText(template, n.withDefaults(data))
	if err != nil {
		return err
	}
	return n.sms.Send(ctx, phone, text)
}

// SMSEnabled reports whether an SMS transport is configured.
func (n *Notifier) SMSEnabled() bool {
	return n.sms != nil
}

func (n *Notifier) withDefaults(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data)+1)
	out["firmName"] = n.firmName
	for k, v := range data {
		out[k] = v
	}
	return out
}
