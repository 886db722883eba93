package contact

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"divorce-wizard/internal/common/i18n"
	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/common/zoho"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/notify"
	"divorce-wizard/internal/wizard/questions"
	"divorce-wizard/internal/wizard/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentEmail struct {
	kind, to, replyTo, template string
	data                        map[string]interface{}
}

type MockNotifier struct {
	EmailFunc func(kind, to string) error
	sent      []sentEmail
}

func (m *MockNotifier) EmailWithReplyTo(ctx context.Context, kind, to, replyTo, template string, data map[string]interface{}) error {
	m.sent = append(m.sent, sentEmail{kind, to, replyTo, template, data})
	if m.EmailFunc != nil {
		return m.EmailFunc(kind, to)
	}
	return nil
}

type MockCRM struct {
	CreateLeadFunc func(ctx context.Context, lead *zoho.Lead) (string, error)
}

func (m *MockCRM) CreateLead(ctx context.Context, lead *zoho.Lead) (string, error) {
	return m.CreateLeadFunc(ctx, lead)
}

func newValidator(t *testing.T) *validation.Validator {
	t.Helper()
	reg, err := questions.Load()
	require.NoError(t, err)
	v, err := validation.New(reg, i18n.Default())
	require.NoError(t, err)
	return v
}

func validRequest() models.ContactRequest {
	return models.ContactRequest{
		Name:    "דנה בת כהן",
		Phone:   "050-123-4567",
		Email:   "dana@example.com",
		Message: "אשמח לשיחה בנושא משמורת",
	}
}

func TestService_Submit(t *testing.T) {
	n := &MockNotifier{}
	var lead *zoho.Lead
	crm := &MockCRM{CreateLeadFunc: func(ctx context.Context, l *zoho.Lead) (string, error) {
		lead = l
		return "lead-1", nil
	}}
	svc := NewService(newValidator(t), n, crm, "office@firm.co.il", "he", logger.NewTestLogger(t))

	res, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, res.AutoReplySent)
	assert.Equal(t, "lead-1", res.LeadID)

	require.Len(t, n.sent, 2)
	assert.Equal(t, "office@firm.co.il", n.sent[0].to)
	assert.Equal(t, "dana@example.com", n.sent[0].replyTo)
	assert.Equal(t, notify.TemplateContactOffice, n.sent[0].template)
	assert.Equal(t, "0501234567", n.sent[0].data["phone"])
	assert.Equal(t, "dana@example.com", n.sent[1].to)
	assert.Equal(t, notify.TemplateContactAutoReply, n.sent[1].template)

	require.NotNil(t, lead)
	assert.Equal(t, "דנה בת", lead.FirstName)
	assert.Equal(t, "כהן", lead.LastName)
	assert.Equal(t, leadSource, lead.Source)
}

func TestService_Submit_Invalid(t *testing.T) {
	n := &MockNotifier{}
	svc := NewService(newValidator(t), n, nil, "office@firm.co.il", "he", logger.NewTestLogger(t))

	req := validRequest()
	req.Email = "not-an-email"
	_, err := svc.Submit(context.Background(), req)

	var vErr *validation.Error
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "email")
	assert.Empty(t, n.sent)
}

func TestService_Submit_OfficeFailure(t *testing.T) {
	n := &MockNotifier{EmailFunc: func(kind, to string) error {
		return notify.ErrNotificationSendFailed
	}}
	svc := NewService(newValidator(t), n, nil, "office@firm.co.il", "he", logger.NewTestLogger(t))

	_, err := svc.Submit(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrOfficeNotification)
	assert.ErrorIs(t, err, notify.ErrNotificationSendFailed)
	assert.Len(t, n.sent, 1)
}

func TestService_Submit_BestEffortSideEffects(t *testing.T) {
	n := &MockNotifier{EmailFunc: func(kind, to string) error {
		if kind == "contact_autoreply" {
			return errors.New("bounce")
		}
		return nil
	}}
	crm := &MockCRM{CreateLeadFunc: func(ctx context.Context, l *zoho.Lead) (string, error) {
		return "", errors.New("zoho down")
	}}
	svc := NewService(newValidator(t), n, crm, "office@firm.co.il", "he", logger.NewTestLogger(t))

	res, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.False(t, res.AutoReplySent)
	assert.Empty(t, res.LeadID)
}

func TestService_Submit_ZohoClient(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Leads", r.URL.Path)
		assert.Equal(t, "Zoho-oauthtoken tok", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":[{"code":"SUCCESS","status":"success","details":{"id":"z-9"}}]}`)
	}))
	defer srv.Close()

	svc := NewService(newValidator(t), &MockNotifier{}, zoho.NewCRMClient(srv.URL, "tok"), "office@firm.co.il", "he", logger.NewTestLogger(t))

	res, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "z-9", res.LeadID)
	assert.Contains(t, body, `"Lead_Source":"Website"`)
}
