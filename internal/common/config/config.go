// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	AWS        AWSConfig        `mapstructure:"aws"`
	Email      EmailConfig      `mapstructure:"email"`
	CMS        CMSConfig        `mapstructure:"cms"`
	Documents  DocumentsConfig  `mapstructure:"documents"`
	Sessions   SessionsConfig   `mapstructure:"sessions"`
	Submission SubmissionConfig `mapstructure:"submission"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Cron       CronConfig       `mapstructure:"cron"`
	CRM        CRMConfig        `mapstructure:"crm"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	BaseURL     string `mapstructure:"base_url"`
	Locale      string `mapstructure:"locale"`
}

// IsProduction reports whether upstream error details must be hidden from clients.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

type ServerConfig struct {
	Address        string `mapstructure:"address"`
	ReadTimeout    int    `mapstructure:"read_timeout"`    // milliseconds
	WriteTimeout   int    `mapstructure:"write_timeout"`   // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	MaxBodyBytes   int64  `mapstructure:"max_body_bytes"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	APIKey     string   `mapstructure:"api_key"`
	MaxRetries int      `mapstructure:"max_retries"`
	BlogIndex  string   `mapstructure:"blog_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
	MinIdle  int    `mapstructure:"min_idle"`
}

// AWSConfig holds the region shared by SES, SNS and S3 plus per-service settings.
type AWSConfig struct {
	Region string `mapstructure:"region"`
	SES    struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"ses"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sns"`
	S3 struct {
		Endpoint     string `mapstructure:"endpoint"`
		UsePathStyle bool   `mapstructure:"use_path_style"`
	} `mapstructure:"s3"`
}

// EmailConfig selects the mail transport and the addresses used for office mail.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"` // "ses" or "smtp"
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	OfficeEmail string `mapstructure:"office_email"`
	SMTP        struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		UseTLS   bool   `mapstructure:"use_tls"`
	} `mapstructure:"smtp"`
}

// CMSConfig describes the headless CMS project serving blog content.
type CMSConfig struct {
	ProjectID  string `mapstructure:"project_id"`
	Dataset    string `mapstructure:"dataset"`
	APIVersion string `mapstructure:"api_version"`
	Token      string `mapstructure:"token"`
	BaseURL    string `mapstructure:"base_url"`
	CacheTTL   int    `mapstructure:"cache_ttl"` // milliseconds
	Timeout    int    `mapstructure:"timeout"`   // milliseconds
}

type DocumentsConfig struct {
	TemplateMode string   `mapstructure:"template_mode"` // "lenient" or "strict"
	FormsDir     string   `mapstructure:"forms_dir"`
	OutputDir    string   `mapstructure:"output_dir"`
	OutputTTL    int      `mapstructure:"output_ttl"` // ms; batch output older than this is swept
	FontPath     string   `mapstructure:"font_path"`
	AI           AIConfig `mapstructure:"ai"`
}

// AIConfig controls the optional text-generation step of document generation.
type AIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type SessionsConfig struct {
	ExpiryHours      int  `mapstructure:"expiry_hours"`
	ReminderInterval int  `mapstructure:"reminder_interval"` // milliseconds
	MaxReminders     int  `mapstructure:"max_reminders"`
	SMSReminders     bool `mapstructure:"sms_reminders"`
}

type SubmissionConfig struct {
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	FailurePolicy string `mapstructure:"failure_policy"` // "continue" or "fail_fast"
}

type PricingConfig struct {
	PerClaim int    `mapstructure:"per_claim"`
	Currency string `mapstructure:"currency"`
}

type CronConfig struct {
	Secret string `mapstructure:"secret"`
}

// CRMConfig holds the Zoho CRM credentials used for contact-form leads.
type CRMConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base_url"`
	OAuthToken string `mapstructure:"oauth_token"`
}

// TracingConfig enables OpenTelemetry spans; JaegerEndpoint is the
// collector URL, e.g. http://jaeger:14268/api/traces.
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
