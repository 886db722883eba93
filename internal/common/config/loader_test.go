package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  postgres:
    host: localhost
    database: wizard
  redis:
    address: localhost:6379
submission:
  bucket: client-files
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 7*24, cfg.Sessions.ExpiryHours)
	assert.Equal(t, 24*time.Hour, GetDuration(cfg.Sessions.ReminderInterval))
	assert.Equal(t, 3, cfg.Sessions.MaxReminders)
	assert.Equal(t, "lenient", cfg.Documents.TemplateMode)
	assert.Equal(t, "continue", cfg.Submission.FailurePolicy)
	assert.Equal(t, "ses", cfg.Email.Provider)
	assert.Equal(t, "he", cfg.App.Locale)
	assert.Equal(t, "blog-posts", cfg.Database.Elasticsearch.BlogIndex)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("WIZARD_TEST_CMS_TOKEN", "sk-test")
	path := writeConfig(t, `
database:
  postgres:
    host: localhost
    database: wizard
  redis:
    address: localhost:6379
cms:
  token: ${WIZARD_TEST_CMS_TOKEN}
submission:
  bucket: client-files
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.CMS.Token)
}

func TestLoadFromFile_VendorSecretOverride(t *testing.T) {
	t.Setenv("CRON_SECRET", "cron-secret")
	path := writeConfig(t, `
database:
  postgres:
    host: localhost
    database: wizard
  redis:
    address: localhost:6379
submission:
  bucket: client-files
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "cron-secret", cfg.Cron.Secret)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Database.Postgres.Host = "localhost"
		cfg.Database.Postgres.Database = "wizard"
		cfg.Database.Redis.Address = "localhost:6379"
		cfg.Submission.Bucket = "client-files"
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(cfg *Config)
		errMsg string
	}{
		{name: "valid", mutate: func(cfg *Config) {}},
		{
			name:   "missing postgres host",
			mutate: func(cfg *Config) { cfg.Database.Postgres.Host = "" },
			errMsg: "database.postgres.host is required",
		},
		{
			name:   "smtp without host",
			mutate: func(cfg *Config) { cfg.Email.Provider = "smtp" },
			errMsg: "email.smtp.host is required",
		},
		{
			name:   "unknown email provider",
			mutate: func(cfg *Config) { cfg.Email.Provider = "pigeon" },
			errMsg: "email.provider must be ses or smtp",
		},
		{
			name:   "unknown template mode",
			mutate: func(cfg *Config) { cfg.Documents.TemplateMode = "loose" },
			errMsg: "documents.template_mode",
		},
		{
			name:   "unknown failure policy",
			mutate: func(cfg *Config) { cfg.Submission.FailurePolicy = "retry" },
			errMsg: "submission.failure_policy",
		},
		{
			name:   "forms without font",
			mutate: func(cfg *Config) { cfg.Documents.FormsDir = "./forms" },
			errMsg: "documents.font_path is required",
		},
		{
			name: "forms with font",
			mutate: func(cfg *Config) {
				cfg.Documents.FormsDir = "./forms"
				cfg.Documents.FontPath = "./forms/NotoSansHebrew-Regular.ttf"
			},
		},
		{
			name:   "missing bucket",
			mutate: func(cfg *Config) { cfg.Submission.Bucket = "" },
			errMsg: "submission.bucket is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
