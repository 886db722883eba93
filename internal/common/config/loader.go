// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// CMS_TOKEN overrides cms.token and so on
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return build(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// Secrets are commonly provisioned under their vendor names rather than the viper key path.
func overrideEmptyConfig(cfg *Config) {
	overrides := []struct {
		target *string
		env    string
	}{
		{&cfg.CMS.ProjectID, "SANITY_PROJECT_ID"},
		{&cfg.CMS.Dataset, "SANITY_DATASET"},
		{&cfg.CMS.Token, "SANITY_API_TOKEN"},
		{&cfg.Documents.AI.APIKey, "GEMINI_API_KEY"},
		{&cfg.Cron.Secret, "CRON_SECRET"},
		{&cfg.App.BaseURL, "NEXT_PUBLIC_BASE_URL"},
		{&cfg.Submission.Bucket, "SUBMISSION_BUCKET"},
		{&cfg.CRM.OAuthToken, "ZOHO_CRM_OAUTH_TOKEN"},
		{&cfg.Email.SMTP.Username, "SMTP_USER"},
		{&cfg.Email.SMTP.Password, "SMTP_PASSWORD"},
		{&cfg.Database.Postgres.User, "DB_USER"},
		{&cfg.Database.Postgres.Password, "DB_PASSWORD"},
	}
	for _, o := range overrides {
		if *o.target != "" {
			continue
		}
		if val := os.Getenv(o.env); val != "" {
			*o.target = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "divorce-wizard"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.App.Locale == "" {
		cfg.App.Locale = "he"
	}
	cfg.App.BaseURL = strings.TrimRight(cfg.App.BaseURL, "/")

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 55000
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 25 << 20
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.PoolSize == 0 {
		cfg.Database.Redis.PoolSize = 10
	}
	if cfg.Database.Redis.MinIdle == 0 {
		cfg.Database.Redis.MinIdle = 2
	}
	if cfg.Database.Elasticsearch.MaxRetries == 0 {
		cfg.Database.Elasticsearch.MaxRetries = 3
	}
	if cfg.Database.Elasticsearch.BlogIndex == "" {
		cfg.Database.Elasticsearch.BlogIndex = "blog-posts"
	}

	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "eu-central-1"
	}

	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "ses"
	}
	if cfg.Email.SMTP.Port == 0 {
		cfg.Email.SMTP.Port = 587
	}

	if cfg.CMS.Dataset == "" {
		cfg.CMS.Dataset = "production"
	}
	if cfg.CMS.APIVersion == "" {
		cfg.CMS.APIVersion = "2024-01-01"
	}
	if cfg.CMS.CacheTTL == 0 {
		cfg.CMS.CacheTTL = 300000
	}
	if cfg.CMS.Timeout == 0 {
		cfg.CMS.Timeout = 10000
	}

	if cfg.Documents.TemplateMode == "" {
		cfg.Documents.TemplateMode = "lenient"
	}
	if cfg.Documents.OutputDir == "" {
		cfg.Documents.OutputDir = os.TempDir()
	}
	if cfg.Documents.OutputTTL == 0 {
		cfg.Documents.OutputTTL = int(time.Hour.Milliseconds())
	}
	if cfg.Documents.AI.Model == "" {
		cfg.Documents.AI.Model = "gemini-2.0-flash"
	}
	if cfg.Documents.AI.Timeout == 0 {
		cfg.Documents.AI.Timeout = 30000
	}

	if cfg.Sessions.ExpiryHours == 0 {
		cfg.Sessions.ExpiryHours = 7 * 24
	}
	if cfg.Sessions.ReminderInterval == 0 {
		cfg.Sessions.ReminderInterval = int((24 * time.Hour).Milliseconds())
	}
	if cfg.Sessions.MaxReminders == 0 {
		cfg.Sessions.MaxReminders = 3
	}

	if cfg.Submission.Prefix == "" {
		cfg.Submission.Prefix = "submissions"
	}
	if cfg.Submission.FailurePolicy == "" {
		cfg.Submission.FailurePolicy = "continue"
	}

	if cfg.Pricing.PerClaim == 0 {
		cfg.Pricing.PerClaim = 350
	}
	if cfg.Pricing.Currency == "" {
		cfg.Pricing.Currency = "ILS"
	}

	if cfg.CRM.BaseURL == "" {
		cfg.CRM.BaseURL = "https://www.zohoapis.com/crm/v3"
	}

	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	switch cfg.Email.Provider {
	case "ses":
	case "smtp":
		if cfg.Email.SMTP.Host == "" {
			return fmt.Errorf("email.smtp.host is required when email.provider is smtp")
		}
	default:
		return fmt.Errorf("email.provider must be ses or smtp, got %q", cfg.Email.Provider)
	}

	switch cfg.Documents.TemplateMode {
	case "lenient", "strict":
	default:
		return fmt.Errorf("documents.template_mode must be lenient or strict, got %q", cfg.Documents.TemplateMode)
	}

	// The built-in overlay face is ASCII only; Hebrew values need a TTF.
	if cfg.Documents.FormsDir != "" && cfg.Documents.FontPath == "" {
		return fmt.Errorf("documents.font_path is required when documents.forms_dir is set")
	}

	switch cfg.Submission.FailurePolicy {
	case "continue", "fail_fast":
	default:
		return fmt.Errorf("submission.failure_policy must be continue or fail_fast, got %q", cfg.Submission.FailurePolicy)
	}

	if cfg.Submission.Bucket == "" {
		return fmt.Errorf("submission.bucket is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
