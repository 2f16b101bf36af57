package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds database connection settings.
// Driver selects the backend: "postgres" (default) or "sqlite".
type DatabaseConfig struct {
	Driver             string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	SQLitePath         string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AcceptanceConfig controls how acceptance tokens are minted and linked.
type AcceptanceConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
	// LinkMode is "confirm" (landing page with a button) or "direct" (one-click link).
	LinkMode string
	// PresignTTL bounds the lifetime of download links for rendered PDFs.
	PresignTTL time.Duration
}

// AuthConfig holds operator API authentication settings.
type AuthConfig struct {
	OperatorSecret string
	OperatorTTL    time.Duration
}

// SMTPConfig holds outbound mail submission settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// DocuSignConfig holds e-signature provider settings.
type DocuSignConfig struct {
	BaseURL     string
	AccountID   string
	AccessToken string
	// ConnectHMACKey verifies inbound Connect webhooks. It is required once an
	// account is configured; unsigned events are never accepted.
	ConnectHMACKey string
}

// configured reports whether envelope credentials were supplied.
func (c DocuSignConfig) configured() bool {
	return c.AccountID != "" || c.AccessToken != ""
}

// HTTPConfig controls how the client address is derived behind a reverse proxy.
// ProxyHeader is honoured only for requests arriving from TrustedProxies.
type HTTPConfig struct {
	ProxyHeader    string
	TrustedProxies []string
}

// EmailChannel notifies operators by e-mail.
type EmailChannel struct {
	Enabled bool   `yaml:"enabled"`
	To      string `yaml:"to"`
}

// SlackChannel posts to a Slack incoming webhook.
type SlackChannel struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// SMSChannel sends a Twilio text message.
type SMSChannel struct {
	Enabled    bool   `yaml:"enabled"`
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
	To         string `yaml:"to"`
}

// PusherChannel triggers a Pusher Channels event.
type PusherChannel struct {
	Enabled bool   `yaml:"enabled"`
	AppID   string `yaml:"app_id"`
	Key     string `yaml:"key"`
	Secret  string `yaml:"secret"`
	Cluster string `yaml:"cluster"`
	Channel string `yaml:"channel"`
	Event   string `yaml:"event"`
}

// WebhookChannel POSTs the acceptance record to a backend URL.
type WebhookChannel struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// NotifyConfig lists the notification channels fired on acceptance.
type NotifyConfig struct {
	Timeout     time.Duration  `yaml:"timeout"`
	MaxAttempts int            `yaml:"max_attempts"`
	Concurrency int            `yaml:"concurrency"`
	Email       EmailChannel   `yaml:"email"`
	Slack       SlackChannel   `yaml:"slack"`
	SMS         SMSChannel     `yaml:"sms"`
	Pusher      PusherChannel  `yaml:"pusher"`
	Webhook     WebhookChannel `yaml:"webhook"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port          string
	PublicBaseURL string
	Timezone      string
	LogLevel      string
	HTTP          HTTPConfig
	Database      DatabaseConfig
	MinIO         MinIOConfig
	Acceptance    AcceptanceConfig
	Auth          AuthConfig
	SMTP          SMTPConfig
	DocuSign      DocuSignConfig
	Notify        NotifyConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// When NOTIFY_CONFIG_FILE points to a YAML file, its channel settings override the environment.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:          getEnv("PORT", "8080"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		Timezone:      getEnv("APP_TIMEZONE", "UTC"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		HTTP: HTTPConfig{
			ProxyHeader:    getEnv("PROXY_HEADER", ""),
			TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		},
		Database: DatabaseConfig{
			Driver:             getEnv("DB_DRIVER", "postgres"),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			SQLitePath:         getEnv("SQLITE_PATH", "acceptapi.db"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Acceptance: AcceptanceConfig{
			TokenSecret: getEnv("ACCEPT_TOKEN_SECRET", ""),
			TokenTTL:    getEnvDuration("ACCEPT_TOKEN_TTL", 7*24*time.Hour),
			LinkMode:    getEnv("ACCEPT_LINK_MODE", "confirm"),
			PresignTTL:  getEnvDuration("PDF_PRESIGN_TTL", 15*time.Minute),
		},
		Auth: AuthConfig{
			OperatorSecret: getEnv("OPERATOR_JWT_SECRET", ""),
			OperatorTTL:    getEnvDuration("OPERATOR_JWT_TTL", 12*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@localhost"),
		},
		DocuSign: DocuSignConfig{
			BaseURL:        getEnv("DOCUSIGN_BASE_URL", "https://demo.docusign.net/restapi"),
			AccountID:      getEnv("DOCUSIGN_ACCOUNT_ID", ""),
			AccessToken:    getEnv("DOCUSIGN_ACCESS_TOKEN", ""),
			ConnectHMACKey: getEnv("DOCUSIGN_CONNECT_HMAC_KEY", ""),
		},
		Notify: NotifyConfig{
			Timeout:     getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),
			MaxAttempts: getEnvInt("NOTIFY_MAX_ATTEMPTS", 3),
			Concurrency: getEnvInt("NOTIFY_CONCURRENCY", 4),
			Email: EmailChannel{
				Enabled: getEnvBool("NOTIFY_EMAIL_ENABLED", false),
				To:      getEnv("NOTIFY_EMAIL_TO", ""),
			},
			Slack: SlackChannel{
				Enabled:    getEnvBool("NOTIFY_SLACK_ENABLED", false),
				WebhookURL: getEnv("NOTIFY_SLACK_WEBHOOK_URL", ""),
			},
			SMS: SMSChannel{
				Enabled:    getEnvBool("NOTIFY_SMS_ENABLED", false),
				AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
				AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
				From:       getEnv("TWILIO_FROM", ""),
				To:         getEnv("NOTIFY_SMS_TO", ""),
			},
			Pusher: PusherChannel{
				Enabled: getEnvBool("NOTIFY_PUSHER_ENABLED", false),
				AppID:   getEnv("PUSHER_APP_ID", ""),
				Key:     getEnv("PUSHER_KEY", ""),
				Secret:  getEnv("PUSHER_SECRET", ""),
				Cluster: getEnv("PUSHER_CLUSTER", "mt1"),
				Channel: getEnv("PUSHER_CHANNEL", "notifications"),
				Event:   getEnv("PUSHER_EVENT", "doc_accepted"),
			},
			Webhook: WebhookChannel{
				Enabled: getEnvBool("NOTIFY_WEBHOOK_ENABLED", false),
				URL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
			},
		},
	}

	if path := os.Getenv("NOTIFY_CONFIG_FILE"); path != "" {
		if err := loadNotifyFile(path, &cfg.Notify); err != nil {
			return nil, err
		}
	}

	if cfg.DocuSign.configured() && cfg.DocuSign.ConnectHMACKey == "" {
		return nil, errors.New("DOCUSIGN_CONNECT_HMAC_KEY is required when DocuSign is configured")
	}
	if cfg.HTTP.ProxyHeader != "" && len(cfg.HTTP.TrustedProxies) == 0 {
		return nil, errors.New("PROXY_HEADER requires TRUSTED_PROXIES")
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
