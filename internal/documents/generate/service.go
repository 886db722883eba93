// Package generate assembles legal documents from templates and wizard data:
// DOCX per claim, and PDF forms by overlaying text on page images.
package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/common/metrics"
	"divorce-wizard/internal/documents/template"
	"divorce-wizard/internal/models"
)

var ErrGenerationFailed = errors.New("DOCUMENT_GENERATION_FAILED")

type Config struct {
	AIEnabled bool
	FormsDir  string
	OutputDir string
	// OutputTTL is how long WriteAll directories live before SweepOutput
	// removes them.
	OutputTTL time.Duration
	FontPath  string
}

const (
	outputPattern    = "documents-*"
	defaultOutputTTL = time.Hour
)

// SchemaPaths lists the answer paths a claim declares; questions.Registry
// satisfies it.
type SchemaPaths interface {
	Paths(claim models.ClaimType) ([]string, error)
}

type Service struct {
	config     Config
	engine     *template.Engine
	schema     SchemaPaths
	summarizer Summarizer
	overlay    *OverlayRenderer
	logger     logger.Logger
	now        func() time.Time
}

// NewService builds the service. Fields schema declares but the applicant
// left empty render as blanks; with a nil schema they count as unresolved.
// With AI enabled, a nil summarizer makes every generation fail with
// ErrProviderKeyMissing.
func NewService(cfg Config, engine *template.Engine, schema SchemaPaths, summarizer Summarizer, log logger.Logger) *Service {
	return &Service{
		config:     cfg,
		engine:     engine,
		schema:     schema,
		summarizer: summarizer,
		overlay:    NewOverlayRenderer(cfg.FormsDir, cfg.FontPath),
		logger:     log.WithFields(map[string]interface{}{"component": "document-generation"}),
		now:        time.Now,
	}
}

func (s *Service) checkProvider() error {
	if s.config.AIEnabled && s.summarizer == nil {
		return ErrProviderKeyMissing
	}
	return nil
}

// Generate builds the DOCX for one claim (or the power of attorney).
func (s *Service) Generate(ctx context.Context, name string, data models.DocumentData) (*models.GeneratedDocument, error) {
	if err := s.checkProvider(); err != nil {
		return nil, err
	}
	if !s.engine.Has(name) {
		return nil, fmt.Errorf("%w: %q", template.ErrTemplateNotFound, name)
	}
	return s.generate(ctx, name, data)
}

// GenerateAll builds one DOCX per selected claim plus the power of attorney.
// Templates are checked up front so a missing one yields no output at all.
func (s *Service) GenerateAll(ctx context.Context, data models.DocumentData) (map[string]*models.GeneratedDocument, error) {
	if err := s.checkProvider(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(data.SelectedClaims)+1)
	for _, c := range data.SelectedClaims {
		names = append(names, string(c))
	}
	names = append(names, models.PowerOfAttorney)

	for _, name := range names {
		if !s.engine.Has(name) {
			return nil, fmt.Errorf("%w: %q", template.ErrTemplateNotFound, name)
		}
	}

	docs := make(map[string]*models.GeneratedDocument, len(names))
	for _, name := range names {
		doc, err := s.generate(ctx, name, data)
		if err != nil {
			return nil, err
		}
		docs[name] = doc
	}
	return docs, nil
}

// WriteAll generates every document into a fresh directory under OutputDir
// and returns document name to file path.
func (s *Service) WriteAll(ctx context.Context, data models.DocumentData) (map[string]string, error) {
	docs, err := s.GenerateAll(ctx, data)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(s.config.OutputDir, outputPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: create output dir: %v", ErrGenerationFailed, err)
	}

	paths := make(map[string]string, len(docs))
	for name, doc := range docs {
		p := filepath.Join(dir, doc.FileName)
		if err := os.WriteFile(p, doc.Data, 0o600); err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", ErrGenerationFailed, doc.FileName, err)
		}
		paths[name] = p
	}
	return paths, nil
}

// SweepOutput removes WriteAll directories older than OutputTTL and returns
// how many it removed. The reminder cron calls it.
func (s *Service) SweepOutput(ctx context.Context) (int, error) {
	ttl := s.config.OutputTTL
	if ttl <= 0 {
		ttl = defaultOutputTTL
	}
	base := s.config.OutputDir
	if base == "" {
		base = os.TempDir()
	}
	dirs, err := filepath.Glob(filepath.Join(base, outputPattern))
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-ttl)
	removed := 0
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove document output", map[string]interface{}{"dir": dir, "error": err.Error()})
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("document output swept", map[string]interface{}{"removed": removed})
	}
	return removed, nil
}

func (s *Service) generate(ctx context.Context, name string, data models.DocumentData) (*models.GeneratedDocument, error) {
	scoped := data
	scoped.FormData = formDataFor(name, data.FormData)

	tdata := template.BuildData(scoped)
	tdata["aiSummary"] = ""
	if s.config.AIEnabled {
		summary, err := s.summarizer.Summarize(ctx, summaryPrompt(name, scoped))
		if err != nil {
			return nil, fmt.Errorf("%w: ai summary for %s: %v", ErrGenerationFailed, name, err)
		}
		tdata["aiSummary"] = summary
	}

	res, err := s.engine.FillDeclared(name, tdata, s.declared(name))
	if err != nil {
		return nil, err
	}
	if !res.Complete() {
		s.logger.Warn("document has unresolved tokens", map[string]interface{}{
			"document": name,
			"missing":  res.Missing,
		})
	}

	content, err := renderDOCX(res.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	metrics.DocumentsGenerated.WithLabelValues(name, "docx").Inc()
	return &models.GeneratedDocument{
		Name:        name,
		FileName:    name + ".docx",
		ContentType: models.ContentTypeDOCX,
		Data:        content,
	}, nil
}

// RenderForm fills a PDF form by drawing values onto its page images.
func (s *Service) RenderForm(ctx context.Context, form string, data models.DocumentData) (*models.GeneratedDocument, error) {
	if err := s.checkProvider(); err != nil {
		return nil, err
	}

	layout, err := LoadLayout(s.config.FormsDir, form)
	if err != nil {
		if errors.Is(err, ErrFormNotFound) {
			return nil, fmt.Errorf("%w: %v", template.ErrTemplateNotFound, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	tdata := template.BuildData(data)
	value := func(token string) string {
		res, err := s.engine.FillText("{{"+token+"}}", tdata)
		if err != nil || !res.Complete() {
			return ""
		}
		return res.Text
	}

	pages, err := s.overlay.RenderPages(layout, value)
	if err != nil {
		if errors.Is(err, ErrFontMissing) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	pdf, err := AssemblePDF(pages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	metrics.DocumentsGenerated.WithLabelValues(form, "pdf").Inc()
	return &models.GeneratedDocument{
		Name:        form,
		FileName:    form + ".pdf",
		ContentType: models.ContentTypePDF,
		Data:        pdf,
	}, nil
}

// declared covers the basic info fields and, for a claim template, every
// path of the claim's question schema.
func (s *Service) declared(name string) template.Declared {
	d := template.Declared{}
	for key := range (models.BasicInfo{}).AsMap() {
		d.Declare("", key)
	}
	if s.schema != nil {
		if paths, err := s.schema.Paths(models.ClaimType(name)); err == nil {
			d.Declare("formData", paths...)
		}
	}
	return d
}

// formDataFor accepts either claim-keyed form data or a single claim's answers.
func formDataFor(name string, formData map[string]interface{}) map[string]interface{} {
	if scoped, ok := formData[name].(map[string]interface{}); ok {
		return scoped
	}
	return formData
}
