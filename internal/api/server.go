// Package api exposes the wizard backend over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	apierrors "divorce-wizard/internal/common/errors"
	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/contact"
	"divorce-wizard/internal/content"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/sessions"
	"divorce-wizard/internal/wizard/validation"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type SessionService interface {
	sessions.SessionWriter
	Get(ctx context.Context, id string) (*models.WizardSession, error)
	Patch(ctx context.Context, id string, patch models.SessionPatch) (*models.WizardSession, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.WizardSession, error)
}

type ReminderRunner interface {
	Run(ctx context.Context) (*sessions.ReminderReport, error)
}

type DocumentService interface {
	Generate(ctx context.Context, name string, data models.DocumentData) (*models.GeneratedDocument, error)
	WriteAll(ctx context.Context, data models.DocumentData) (map[string]string, error)
	RenderForm(ctx context.Context, form string, data models.DocumentData) (*models.GeneratedDocument, error)
	SweepOutput(ctx context.Context) (int, error)
}

type SubmissionService interface {
	Submit(ctx context.Context, req *models.SubmissionRequest) (*models.SubmissionResult, error)
}

type ContactService interface {
	Submit(ctx context.Context, req models.ContactRequest) (*contact.Result, error)
}

type BlogService interface {
	Latest(ctx context.Context, n int) ([]models.BlogPost, error)
	List(ctx context.Context, page, size int) (*content.Page, error)
	Post(ctx context.Context, slug string) (*models.BlogPost, error)
	Search(ctx context.Context, query string) ([]models.BlogPost, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Locale         string
	PricePerClaim  int
	Currency       string
	CronSecret     string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	ExposeDetails  bool
}

type Dependencies struct {
	Validator  *validation.Validator
	Sessions   SessionService
	Reminders  ReminderRunner
	Documents  DocumentService
	Submission SubmissionService
	Contact    ContactService
	Blog       BlogService
	// Ready lists the dependencies /ready checks, by name.
	Ready map[string]Pinger
}

type Server struct {
	config Config
	deps   Dependencies
	errors *apierrors.ErrorHandler
	logger logger.Logger
	now    func() time.Time
}

func NewServer(cfg Config, deps Dependencies, log logger.Logger) *Server {
	if cfg.Locale == "" {
		cfg.Locale = "he"
	}
	return &Server{
		config: cfg,
		deps:   deps,
		errors: apierrors.NewErrorHandler(log, cfg.ExposeDetails),
		logger: log.WithFields(map[string]interface{}{"component": "api"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(timeoutMiddleware(s.config.RequestTimeout))

		r.Post("/contact", s.submitContact)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/create", s.createSession)
			r.Get("/{id}", s.getSession)
			r.Patch("/{id}", s.patchSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.cronAuthMiddleware)
			r.Get("/cron/send-reminders", s.sendReminders)
			r.Post("/cron/send-reminders", s.sendReminders)
		})

		r.Post("/generate-document", s.generateDocument)
		r.Post("/submission", s.submit)
		r.Post("/submit", s.forwardSubmit)

		r.Post("/wizard/step", s.wizardStep)
		r.Get("/questions/{claim}", s.getQuestions)
		r.Post("/payment", s.payment)

		r.Route("/blog", func(r chi.Router) {
			r.Get("/", s.listPosts)
			r.Get("/latest", s.latestPosts)
			r.Get("/search", s.searchPosts)
			r.Get("/{slug}", s.getPost)
		})
	})
	return r
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.errors.Write(w, r, toStandardError(err))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := http.StatusOK
	for name, p := range s.deps.Ready {
		if err := p.Ping(r.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
		"time":   s.now().Format(time.RFC3339),
	})
}
