package generate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"divorce-wizard/internal/models"

	"google.golang.org/genai"
)

var ErrProviderKeyMissing = errors.New("PROVIDER_KEY_MISSING")

const defaultAIModel = "gemini-2.0-flash"

const summaryInstruction = "אתה עוזר משפטי. כתוב פסקה עובדתית קצרה בעברית (עד 5 משפטים) " +
	"המסכמת את עיקרי העובדות לכתב הטענות. אל תמציא עובדות ואל תוסיף ייעוץ משפטי."

// Summarizer produces the {{aiSummary}} paragraph.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

type GenAISummarizer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGenAISummarizer fails with ErrProviderKeyMissing when apiKey is empty.
func NewGenAISummarizer(ctx context.Context, apiKey, model string, timeout time.Duration) (*GenAISummarizer, error) {
	if apiKey == "" {
		return nil, ErrProviderKeyMissing
	}
	if model == "" {
		model = defaultAIModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAISummarizer{client: client, model: model, timeout: timeout}, nil
}

func (s *GenAISummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(summaryInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
		MaxOutputTokens:   512,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// summaryPrompt lists the facts the model may use.
func summaryPrompt(claim string, data models.DocumentData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "סוג ההליך: %s\n", models.ClaimType(claim).Label())
	fmt.Fprintf(&b, "התובע/ת: %s\n", data.BasicInfo.FullName)
	fmt.Fprintf(&b, "הנתבע/ת: %s\n", data.BasicInfo.FullName2)
	if data.BasicInfo.WeddingDay != "" {
		fmt.Fprintf(&b, "תאריך נישואין: %s\n", data.BasicInfo.WeddingDay)
	}
	if len(data.Children) > 0 {
		fmt.Fprintf(&b, "מספר ילדים משותפים: %d\n", len(data.Children))
	}
	keys := make([]string, 0, len(data.FormData))
	for key := range data.FormData {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if s, ok := data.FormData[key].(string); ok && s != "" {
			fmt.Fprintf(&b, "%s: %s\n", key, s)
		}
	}
	return b.String()
}
