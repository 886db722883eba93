package notify

import (
	"embed"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates/messages.yaml
var templateFS embed.FS

// Template names.
const (
	TemplateResumeLink       = "resume_link"
	TemplateReminderSMS      = "reminder_sms"
	TemplateSubmissionOffice = "submission_office"
	TemplateSubmissionClient = "submission_client"
	TemplateContactOffice    = "contact_office"
	TemplateContactAutoReply = "contact_autoreply"
)

// MaxReminderTemplate is the last escalation step; later reminders reuse it.
const MaxReminderTemplate = 3

var ErrTemplateNotFound = errors.New("NOTIFICATION_TEMPLATE_NOT_FOUND")

type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Templates holds the embedded message set.
type Templates struct {
	byName map[string]Template
}

func LoadTemplates() (*Templates, error) {
	raw, err := templateFS.ReadFile("templates/messages.yaml")
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	byName := map[string]Template{}
	if err := yaml.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Templates{byName: byName}, nil
}

// ReminderTemplate picks the escalating template for reminder number n (1-based).
func ReminderTemplate(n int) string {
	if n < 1 {
		n = 1
	}
	if n > MaxReminderTemplate {
		n = MaxReminderTemplate
	}
	return "reminder_" + strconv.Itoa(n)
}

// Render fills the named template. The body is HTML so values are escaped;
// the subject is plain text.
func (t *Templates) Render(name string, data map[string]interface{}) (subject, body string, err error) {
	tmpl, ok := t.byName[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return renderTemplate(tmpl.Subject, data, false), renderTemplate(tmpl.Body, data, true), nil
}

// RenderText fills the named template body without escaping, for SMS.
func (t *Templates) RenderText(name string, data map[string]interface{}) (string, error) {
	tmpl, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return strings.TrimSpace(renderTemplate(tmpl.Body, data, false)), nil
}

var placeholder = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// renderTemplate substitutes every {{key}} in one pass over tmpl, so values
// are never rescanned for placeholders. Missing keys render empty.
func renderTemplate(tmpl string, data map[string]interface{}, escape bool) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		value := ""
		switch val := data[match[2:len(match)-2]].(type) {
		case string:
			value = val
		case int:
			value = strconv.Itoa(val)
		case nil:
		default:
			value = fmt.Sprintf("%v", val)
		}
		if escape {
			value = html.EscapeString(value)
		}
		return value
	})
}
