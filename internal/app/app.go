// Package app wires configuration into the running services shared by the
// server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"divorce-wizard/internal/api"
	"divorce-wizard/internal/common/aws"
	"divorce-wizard/internal/common/config"
	"divorce-wizard/internal/common/database"
	commonhttp "divorce-wizard/internal/common/http"
	"divorce-wizard/internal/common/i18n"
	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/common/observability"
	"divorce-wizard/internal/common/zoho"
	"divorce-wizard/internal/contact"
	"divorce-wizard/internal/content"
	"divorce-wizard/internal/documents/generate"
	"divorce-wizard/internal/documents/template"
	"divorce-wizard/internal/notify"
	"divorce-wizard/internal/sessions"
	"divorce-wizard/internal/submission"
	"divorce-wizard/internal/wizard/questions"
	"divorce-wizard/internal/wizard/validation"

	"go.uber.org/zap"
)

type App struct {
	Config *config.Config
	Logger logger.Logger

	Postgres      *database.PostgresClient
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient
	Observability *observability.Observability

	Validator  *validation.Validator
	Sessions   *sessions.Service
	Reminders  *sessions.ReminderJob
	Documents  *generate.Service
	Submission *submission.Service
	Contact    *contact.Service
	Blog       *content.Service
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

type datastore interface {
	Ping(ctx context.Context) error
	Close() error
}

// connect opens a client and pings it. A client that fails the ping is
// closed, so a failed attempt holds no connections.
func connect[T datastore](ctx context.Context, open func() (T, error)) (T, error) {
	var zero T
	client, err := open()
	if err != nil {
		return zero, err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return zero, err
	}
	return client, nil
}

// Options tune how hard Build tries to reach the datastores.
type Options struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// Build connects every datastore and constructs the services. Callers must
// Close the result.
func Build(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, opts Options) (*App, error) {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 2 * time.Second
	}

	log := logger.NewZapAdapter(zapLog)
	a := &App{Config: cfg, Logger: log}

	// --- Datastores ---
	err := retryWithBackoff(func() error {
		var err error
		a.Postgres, err = connect(ctx, func() (*database.PostgresClient, error) {
			return database.NewPostgres(cfg.Database.Postgres)
		})
		return err
	}, opts.MaxRetries, opts.InitialDelay, zapLog, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	if err := a.Postgres.Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	err = retryWithBackoff(func() error {
		var err error
		a.Redis, err = connect(ctx, func() (*database.RedisClient, error) {
			return database.NewRedis(cfg.Database.Redis)
		})
		return err
	}, opts.MaxRetries, opts.InitialDelay, zapLog, "Redis connection")
	if err != nil {
		a.Close()
		return nil, err
	}

	// Search is optional; the blog still serves from the CMS without it.
	var search *content.SearchIndex
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err == nil {
			err = es.Ping(ctx)
		}
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, blog search disabled", zap.Error(err))
		} else {
			a.Elasticsearch = es
			search = content.NewSearchIndex(es.Client, cfg.Database.Elasticsearch.BlogIndex)
		}
	}

	// --- AWS ---
	awsCfg, err := aws.LoadConfig(ctx, cfg.AWS)
	if err != nil {
		a.Close()
		return nil, err
	}

	var mailer notify.Mailer
	switch cfg.Email.Provider {
	case "smtp":
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.Email.SMTP.Host,
			Port:     cfg.Email.SMTP.Port,
			Username: cfg.Email.SMTP.Username,
			Password: cfg.Email.SMTP.Password,
			UseTLS:   cfg.Email.SMTP.UseTLS,
		}, cfg.Email.FromAddress, cfg.Email.FromName)
	default:
		mailer = notify.NewSESMailer(aws.NewSESClient(awsCfg), cfg.Email.FromAddress, cfg.Email.FromName)
	}

	var sms *notify.SMSSender
	if cfg.AWS.SNS.Enabled {
		sms = notify.NewSMSSender(aws.NewSNSClient(awsCfg), cfg.AWS.SNS.SenderID)
	}

	templates, err := notify.LoadTemplates()
	if err != nil {
		a.Close()
		return nil, err
	}
	notifier := notify.NewNotifier(mailer, sms, templates, cfg.Email.FromName, log)

	// --- Wizard ---
	registry, err := questions.Load()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load question schemas: %w", err)
	}
	bundle, err := i18n.Load()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Validator, err = validation.New(registry, bundle)
	if err != nil {
		a.Close()
		return nil, err
	}

	// --- Sessions ---
	repo := sessions.NewPostgresRepository(a.Postgres.DB)
	a.Sessions = sessions.NewService(repo, notifier, sessions.Config{
		Expiry:           time.Duration(cfg.Sessions.ExpiryHours) * time.Hour,
		BaseURL:          cfg.App.BaseURL,
		ReminderInterval: config.GetDuration(cfg.Sessions.ReminderInterval),
		MaxReminders:     cfg.Sessions.MaxReminders,
		SMSReminders:     cfg.Sessions.SMSReminders,
	}, log)
	a.Reminders = sessions.NewReminderJob(a.Sessions, repo, a.Redis.Client, log)

	// --- Documents ---
	var summarizer generate.Summarizer
	if cfg.Documents.AI.Enabled {
		s, err := generate.NewGenAISummarizer(ctx, cfg.Documents.AI.APIKey, cfg.Documents.AI.Model, config.GetDuration(cfg.Documents.AI.Timeout))
		if err != nil {
			// Generation reports PROVIDER_KEY_MISSING per request.
			zapLog.Warn("document summaries unavailable", zap.Error(err))
		} else {
			summarizer = s
		}
	}
	a.Documents = generate.NewService(generate.Config{
		AIEnabled: cfg.Documents.AI.Enabled,
		FormsDir:  cfg.Documents.FormsDir,
		OutputDir: cfg.Documents.OutputDir,
		OutputTTL: config.GetDuration(cfg.Documents.OutputTTL),
		FontPath:  cfg.Documents.FontPath,
	}, template.New(template.Mode(cfg.Documents.TemplateMode)), registry, summarizer, log)

	// --- Submission ---
	a.Observability = observability.New(cfg.App.Name, observability.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
	}, zapLog)
	storage := submission.NewS3Storage(aws.NewS3Client(awsCfg, cfg.AWS), cfg.Submission.Bucket)
	a.Submission = submission.NewService(submission.Config{
		Prefix:        cfg.Submission.Prefix,
		FailurePolicy: cfg.Submission.FailurePolicy,
		OfficeEmail:   cfg.Email.OfficeEmail,
		Locale:        cfg.App.Locale,
	}, a.Validator, a.Documents, storage, a.Sessions, notifier, a.Observability, log)

	// --- Contact ---
	var crm contact.LeadCreator
	if cfg.CRM.Enabled {
		crm = zoho.NewCRMClient(cfg.CRM.BaseURL, cfg.CRM.OAuthToken)
	}
	a.Contact = contact.NewService(a.Validator, notifier, crm, cfg.Email.OfficeEmail, cfg.App.Locale, log)

	// --- Blog ---
	cms := content.NewCMSClient(commonhttp.NewClient(config.GetDuration(cfg.CMS.Timeout)), content.CMSConfig{
		ProjectID:  cfg.CMS.ProjectID,
		Dataset:    cfg.CMS.Dataset,
		APIVersion: cfg.CMS.APIVersion,
		Token:      cfg.CMS.Token,
		BaseURL:    cfg.CMS.BaseURL,
	})
	cache := content.NewCache(a.Redis.Client, config.GetDuration(cfg.CMS.CacheTTL))
	a.Blog = content.NewService(cms, cache, search, log)

	return a, nil
}

// APIServer builds the HTTP surface over the services.
func (a *App) APIServer() *api.Server {
	cfg := a.Config
	ready := map[string]api.Pinger{"postgres": a.Postgres, "redis": a.Redis}
	if a.Elasticsearch != nil {
		ready["elasticsearch"] = a.Elasticsearch
	}
	return api.NewServer(api.Config{
		Locale:         cfg.App.Locale,
		PricePerClaim:  cfg.Pricing.PerClaim,
		Currency:       cfg.Pricing.Currency,
		CronSecret:     cfg.Cron.Secret,
		RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		ExposeDetails:  !cfg.App.IsProduction(),
	}, api.Dependencies{
		Validator:  a.Validator,
		Sessions:   a.Sessions,
		Reminders:  a.Reminders,
		Documents:  a.Documents,
		Submission: a.Submission,
		Contact:    a.Contact,
		Blog:       a.Blog,
		Ready:      ready,
	}, a.Logger)
}

func (a *App) Close() {
	if a.Observability != nil {
		a.Observability.Shutdown()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Postgres != nil {
		_ = a.Postgres.Close()
	}
}
