package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Session      SessionConfig
	Stripe       StripeConfig
	Mail         MailConfig
	Admin        AdminConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPLINE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOPLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"SHOPLINE_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"SHOPLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPLINE_REDIS_URL"`
	Address      string        `envconfig:"SHOPLINE_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	CookieName   string        `envconfig:"SHOPLINE_SESSION_COOKIE" default:"shop_session"`
	TTL          time.Duration `envconfig:"SHOPLINE_SESSION_TTL" default:"720h"`
	CookieSecure bool          `envconfig:"SHOPLINE_SESSION_COOKIE_SECURE" default:"false"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"SHOPLINE_STRIPE_API_KEY"`
	Secret   string `envconfig:"SHOPLINE_STRIPE_WEBHOOK_SECRET"`
	Env      string `envconfig:"SHOPLINE_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"SHOPLINE_STRIPE_CURRENCY" default:"usd"`

	SuccessURL string `envconfig:"SHOPLINE_CHECKOUT_SUCCESS_URL" default:"http://localhost:3000/checkout/success"`
	CancelURL  string `envconfig:"SHOPLINE_CHECKOUT_CANCEL_URL" default:"http://localhost:3000/checkout/cancel"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type MailConfig struct {
	SMTPHost string `envconfig:"SHOPLINE_SMTP_HOST"`
	SMTPPort int    `envconfig:"SHOPLINE_SMTP_PORT" default:"587"`
	Username string `envconfig:"SHOPLINE_SMTP_USERNAME"`
	Password string `envconfig:"SHOPLINE_SMTP_PASSWORD"`
	From     string `envconfig:"SHOPLINE_MAIL_FROM" default:"admin@shopline.example"`
}

type AdminConfig struct {
	Token string `envconfig:"SHOPLINE_ADMIN_TOKEN"`
}

type OutboxConfig struct {
	PollInterval time.Duration `envconfig:"SHOPLINE_OUTBOX_POLL_INTERVAL" default:"5s"`
	BatchSize    int           `envconfig:"SHOPLINE_OUTBOX_BATCH_SIZE" default:"20"`
	MaxAttempts  int           `envconfig:"SHOPLINE_OUTBOX_MAX_ATTEMPTS" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHOPLINE_AUTO_MIGRATE" default:"false"`
}
