package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/paylink-cm/paylink/pkg/config"
	"github.com/paylink-cm/paylink/pkg/database"
)

// Config holds all configuration for the PayLink server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Public base URL used in payment links and reset emails.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"paylink"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"paylink_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"paylink_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis (rate limiting, page view counters)
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// JWT
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// SMS provider (empty API key means notifications are logged, not sent)
	SMSAPIKey   string `env:"SMS_API_KEY" envDefault:""`
	SMSAPIURL   string `env:"SMS_API_URL" envDefault:"https://api.sms.cm/v1/messages"`
	SMSSenderID string `env:"SMS_SENDER_ID" envDefault:"PayLink"`

	// Email provider (Resend; empty API key means emails are logged, not sent)
	ResendAPIKey string `env:"RESEND_API_KEY" envDefault:""`
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"PayLink <noreply@paylink.cm>"`

	// Plan limits
	FreePlanMaxPages int `env:"FREE_PLAN_MAX_PAGES" envDefault:"1"`

	// Transaction fee applied when a page prices in net amounts, in percent.
	FeePercent float64 `env:"FEE_PERCENT" envDefault:"4.0"`

	// Tracing
	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint   string  `env:"TRACING_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load paylink config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.FeePercent < 0 || cfg.FeePercent >= 100 {
		return nil, fmt.Errorf("invalid fee percent: %g", cfg.FeePercent)
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == "change-this-to-a-secure-secret" {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	return cfg, nil
}

// Postgres returns the database pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	return pg
}

// Redis returns the redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPass,
		DB:       c.RedisDB,
	}
}

// IsProduction reports whether the server runs in production mode. Demo
// fixture pages are only served outside production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
