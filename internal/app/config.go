package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/inspeksi/audit-dashboard/internal/dashboard"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"120s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"90s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	// APIBaseURL is served on /api/config and used directly when
	// ConfigSourceURL is empty.
	APIBaseURL      string        `envconfig:"API_BASE_URL"`
	ConfigSourceURL string        `envconfig:"CONFIG_SOURCE_URL"`
	APITimeout      time.Duration `envconfig:"API_TIMEOUT" default:"30s"`

	AuditFetchPageSize int    `envconfig:"AUDIT_FETCH_PAGE_SIZE" default:"30"`
	DisplayTimezone    string `envconfig:"DISPLAY_TIMEZONE" default:"Asia/Jakarta"`
	DownloadRateLimit  int    `envconfig:"DOWNLOAD_RATE_LIMIT" default:"30"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.APIBaseURL == "" && cfg.ConfigSourceURL == "" {
		return nil, errors.New("either API_BASE_URL or CONFIG_SOURCE_URL must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// DisplayLocation resolves DisplayTimezone, falling back to WIB.
func (c *Config) DisplayLocation() *time.Location {
	name := ""
	if c != nil {
		name = c.DisplayTimezone
	}
	return dashboard.LoadLocation(name)
}
