package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

var ErrSMSDisabled = errors.New("SMS_DISABLED")

// SNSService is the subset of the SNS client used here.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SMSSender struct {
	client   SNSService
	senderID string
}

func NewSMSSender(client SNSService, senderID string) *SMSSender {
	return &SMSSender{client: client, senderID: senderID}
}

// Send publishes a transactional SMS to a local or international number.
func (s *SMSSender) Send(ctx context.Context, phone, text string) error {
	number := E164(phone)
	if number == "" {
		return fmt.Errorf("%w: %q", ErrInvalidRecipient, phone)
	}

	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(s.senderID)}
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(number),
		Message:           aws.String(text),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("%w: sns: %v", ErrNotificationSendFailed, err)
	}
	return nil
}

// E164 converts Israeli local numbers (05X..., 0X...) to +972 form.
// Numbers already carrying a country code are kept. Returns "" when
// nothing dialable remains.
func E164(phone string) string {
	phone = strings.TrimSpace(phone)
	international := strings.HasPrefix(phone, "+")
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	switch {
	case len(digits) < 8:
		return ""
	case international:
		return "+" + digits
	case strings.HasPrefix(digits, "972"):
		return "+" + digits
	case strings.HasPrefix(digits, "0"):
		return "+972" + digits[1:]
	default:
		return "+" + digits
	}
}
