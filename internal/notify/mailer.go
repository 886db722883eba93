// Package notify sends transactional email (SES or SMTP) and SMS (SNS).
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
	ErrInvalidRecipient       = errors.New("INVALID_RECIPIENT")
)

// Message is a rendered email.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SESService is the subset of the SES client used here.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESMailer struct {
	client SESService
	from   string
}

// NewSESMailer sends from "name <address>".
func NewSESMailer(client SESService, fromAddress, fromName string) *SESMailer {
	return &SESMailer{client: client, from: formatFrom(fromAddress, fromName)}
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrInvalidRecipient
	}

	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(m.from),
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("%w: ses: %v", ErrNotificationSendFailed, err)
	}
	return nil
}

func formatFrom(address, name string) string {
	if name == "" {
		return address
	}
	return (&mail.Address{Name: name, Address: address}).String()
}
