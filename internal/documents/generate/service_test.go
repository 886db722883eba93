package generate

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/documents/template"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/wizard/questions"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSummarizer struct {
	SummarizeFunc func(ctx context.Context, prompt string) (string, error)
	prompts       []string
}

func (m *MockSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, prompt)
	}
	return "", nil
}

func sampleData() models.DocumentData {
	return models.DocumentData{
		BasicInfo: models.BasicInfo{
			FullName:   "דנה כהן",
			IDNumber:   "000000018",
			Address:    "הרצל 1",
			City:       "תל אביב",
			WeddingDay: "2010-06-20",
			FullName2:  "יוסי כהן",
			IDNumber2:  "123456782",
		},
		SelectedClaims: []models.ClaimType{models.ClaimProperty},
		FormData: map[string]interface{}{
			"apartments": []interface{}{map[string]interface{}{"address": "ביאליק 5 רמת גן"}},
			"children": []interface{}{
				map[string]interface{}{"name": "נועה", "idNumber": "000000018", "birthDate": "2015-04-01"},
			},
		},
	}
}

func paragraphs(t *testing.T, data []byte) []string {
	t.Helper()
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var out []string
	for _, item := range doc.Document.Body.Items {
		if p, ok := item.(*docx.Paragraph); ok {
			out = append(out, p.String())
		}
	}
	return out
}

func newService(t *testing.T, cfg Config, summarizer Summarizer) *Service {
	return newServiceWithMode(t, cfg, template.ModeLenient, summarizer)
}

func newServiceWithMode(t *testing.T, cfg Config, mode template.Mode, summarizer Summarizer) *Service {
	t.Helper()
	registry, err := questions.Load()
	require.NoError(t, err)
	return NewService(cfg, template.New(mode), registry, summarizer, logger.NewTestLogger(t))
}

func TestService_Generate_Property(t *testing.T) {
	svc := newService(t, Config{}, nil)

	doc, err := svc.Generate(context.Background(), string(models.ClaimProperty), sampleData())
	require.NoError(t, err)

	assert.Equal(t, "property.docx", doc.FileName)
	assert.Equal(t, models.ContentTypeDOCX, doc.ContentType)

	paras := paragraphs(t, doc.Data)
	require.NotEmpty(t, paras)
	assert.Equal(t, "כתב תביעה רכושית", paras[0])

	text := strings.Join(paras, "\n")
	assert.Contains(t, text, "1. נועה, ת.ז. 000000018")
	assert.Contains(t, text, "ביאליק 5 רמת גן")
	assert.NotContains(t, text, "{{aiSummary}}")
}

func TestService_Generate_StrictWithOptionalFieldsOmitted(t *testing.T) {
	svc := newServiceWithMode(t, Config{}, template.ModeStrict, nil)

	data := sampleData()
	data.FormData = map[string]interface{}{}
	for _, claim := range models.AllClaims {
		doc, err := svc.Generate(context.Background(), string(claim), data)
		require.NoError(t, err, claim)
		assert.NotContains(t, strings.Join(paragraphs(t, doc.Data), "\n"), "{{", claim)
	}

	doc, err := svc.Generate(context.Background(), models.PowerOfAttorney, data)
	require.NoError(t, err)
	assert.NotContains(t, strings.Join(paragraphs(t, doc.Data), "\n"), "{{")
}

func TestService_Generate_LenientLeavesNoPlaceholders(t *testing.T) {
	svc := newService(t, Config{}, nil)

	doc, err := svc.Generate(context.Background(), string(models.ClaimProperty), sampleData())
	require.NoError(t, err)
	text := strings.Join(paragraphs(t, doc.Data), "\n")
	assert.NotContains(t, text, "{{formData.pensionFunds}}")
	assert.NotContains(t, text, "{{")
}

func TestService_Generate_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newService(t, Config{}, nil).Generate(ctx, "pets", sampleData())
	assert.ErrorIs(t, err, template.ErrTemplateNotFound)

	_, err = newService(t, Config{AIEnabled: true}, nil).Generate(ctx, string(models.ClaimProperty), sampleData())
	assert.ErrorIs(t, err, ErrProviderKeyMissing)

	failing := &MockSummarizer{SummarizeFunc: func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	_, err = newService(t, Config{AIEnabled: true}, failing).Generate(ctx, string(models.ClaimProperty), sampleData())
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestService_Generate_AISummary(t *testing.T) {
	summarizer := &MockSummarizer{SummarizeFunc: func(context.Context, string) (string, error) {
		return "הצדדים נשואים מאז 2010.", nil
	}}
	svc := newService(t, Config{AIEnabled: true}, summarizer)

	doc, err := svc.Generate(context.Background(), string(models.ClaimProperty), sampleData())
	require.NoError(t, err)

	assert.Contains(t, strings.Join(paragraphs(t, doc.Data), "\n"), "הצדדים נשואים מאז 2010.")
	require.Len(t, summarizer.prompts, 1)
	assert.Contains(t, summarizer.prompts[0], "דנה כהן")
}

func TestService_GenerateAll(t *testing.T) {
	svc := newService(t, Config{}, nil)
	data := sampleData()
	data.SelectedClaims = []models.ClaimType{models.ClaimProperty, models.ClaimDivorce}
	data.FormData = map[string]interface{}{
		"property": map[string]interface{}{"apartments": []interface{}{map[string]interface{}{"address": "נכס א"}}},
		"divorce":  map[string]interface{}{"marriageCity": "חיפה"},
	}

	docs, err := svc.GenerateAll(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Contains(t, docs, models.PowerOfAttorney)

	assert.Contains(t, strings.Join(paragraphs(t, docs["property"].Data), "\n"), "נכס א")
	assert.Contains(t, strings.Join(paragraphs(t, docs["divorce"].Data), "\n"), "בחיפה")
}

func TestService_GenerateAll_NoPartialOutput(t *testing.T) {
	svc := newService(t, Config{}, nil)
	data := sampleData()
	data.SelectedClaims = []models.ClaimType{models.ClaimProperty, "pets"}

	docs, err := svc.GenerateAll(context.Background(), data)
	assert.ErrorIs(t, err, template.ErrTemplateNotFound)
	assert.Nil(t, docs)
}

func TestService_WriteAll(t *testing.T) {
	svc := newService(t, Config{OutputDir: t.TempDir()}, nil)

	paths, err := svc.WriteAll(context.Background(), sampleData())
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestService_SweepOutput(t *testing.T) {
	base := t.TempDir()
	svc := newService(t, Config{OutputDir: base, OutputTTL: time.Hour}, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	old := filepath.Join(base, "documents-old")
	fresh := filepath.Join(base, "documents-fresh")
	unrelated := filepath.Join(base, "uploads")
	for _, dir := range []string{old, fresh, unrelated} {
		require.NoError(t, os.Mkdir(dir, 0o700))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "property.docx"), []byte("x"), 0o600))
	}
	stale := now.Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))
	require.NoError(t, os.Chtimes(unrelated, stale, stale))
	require.NoError(t, os.Chtimes(fresh, now, now))

	removed, err := svc.SweepOutput(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoDirExists(t, old)
	assert.DirExists(t, fresh)
	assert.DirExists(t, unrelated)
}

func TestSummaryPrompt_StableOrder(t *testing.T) {
	data := sampleData()
	data.FormData = map[string]interface{}{
		"reasons":       "פירוד ממושך",
		"marriageCity":  "חיפה",
		"agreedCustody": "משותפת",
		"apartments":    []interface{}{},
	}

	first := summaryPrompt(string(models.ClaimDivorce), data)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, summaryPrompt(string(models.ClaimDivorce), data))
	}
	agreed := strings.Index(first, "agreedCustody")
	city := strings.Index(first, "marriageCity")
	reasons := strings.Index(first, "reasons")
	assert.True(t, agreed >= 0 && agreed < city && city < reasons, first)
	assert.NotContains(t, first, "apartments")
}

func writeBlankPage(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func darkPixels(img image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			if cr < 0x8000 && cg < 0x8000 && cb < 0x8000 {
				n++
			}
		}
	}
	return n
}

// The coordinates below are pinned to the page image they were measured on.
// If a form's page image changes, its layout must be re-measured.
func TestOverlayRenderer_DrawsAtPinnedCoordinates(t *testing.T) {
	dir := t.TempDir()
	writeBlankPage(t, dir, "page1.png", 200, 100)

	layout := &FormLayout{Name: "cover", Pages: []PageLayout{{
		Image:  "page1.png",
		Fields: []FieldPosition{{Token: "idNumber", X: 20, Y: 50, Align: "left"}},
	}}}

	r := NewOverlayRenderer(dir, "")
	pages, err := r.RenderPages(layout, func(token string) string {
		if token == "idNumber" {
			return "000000018"
		}
		return ""
	})
	require.NoError(t, err)
	require.Len(t, pages, 1)

	img, err := png.Decode(bytes.NewReader(pages[0]))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	// basicfont glyphs are 7x13 with the baseline at y=50.
	assert.Greater(t, darkPixels(img, image.Rect(20, 38, 20+9*7, 52)), 0)
	assert.Equal(t, 0, darkPixels(img, image.Rect(0, 0, 200, 30)))
	assert.Equal(t, 0, darkPixels(img, image.Rect(0, 60, 200, 100)))
}

func TestOverlayRenderer_HebrewNeedsFont(t *testing.T) {
	dir := t.TempDir()
	writeBlankPage(t, dir, "page1.png", 200, 100)
	layout := &FormLayout{Name: "cover", Pages: []PageLayout{{
		Image:  "page1.png",
		Fields: []FieldPosition{{Token: "fullName", X: 180, Y: 50, Align: "right"}},
	}}}

	_, err := NewOverlayRenderer(dir, "").RenderPages(layout, func(string) string { return "דנה כהן" })
	assert.ErrorIs(t, err, ErrFontMissing)

	pages, err := NewOverlayRenderer(dir, "").RenderPages(layout, func(string) string { return "Dana" })
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestAssemblePDF(t *testing.T) {
	dir := t.TempDir()
	writeBlankPage(t, dir, "p.png", 1240, 1754)
	raw, err := os.ReadFile(filepath.Join(dir, "p.png"))
	require.NoError(t, err)

	pdf, err := AssemblePDF([][]byte{raw, raw})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, err = AssemblePDF(nil)
	assert.Error(t, err)
}

func TestService_RenderForm(t *testing.T) {
	dir := t.TempDir()
	writeBlankPage(t, dir, "cover.png", 300, 200)
	layoutYAML := `name: cover
pages:
  - image: cover.png
    fields:
      - { token: idNumber, x: 280, y: 40, align: right }
      - { token: today, x: 20, y: 180 }
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.yaml"), []byte(layoutYAML), 0o600))

	svc := newService(t, Config{FormsDir: dir}, nil)

	doc, err := svc.RenderForm(context.Background(), "cover", sampleData())
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypePDF, doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF")))

	_, err = svc.RenderForm(context.Background(), "missing", sampleData())
	assert.ErrorIs(t, err, template.ErrTemplateNotFound)

	_, err = svc.RenderForm(context.Background(), "../cover", sampleData())
	assert.ErrorIs(t, err, template.ErrTemplateNotFound)
}

func TestVisualOrder(t *testing.T) {
	tests := []struct{ in, want string }{
		{"abc 123", "abc 123"},
		{"שלום", "םולש"},
		{"ת.ז. 123", "123 .ז.ת"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, visualOrder(tt.in), tt.in)
	}
}
