package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "storefront"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Orders   OrdersConfig
	Docstore DocstoreConfig
	Paystack PaystackConfig
	Checkout CheckoutConfig
	Verify   VerifyConfig
	Mailer   MailerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Orders.Driver == OrdersDriverPostgres {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Docstore.validate(cfg.Orders.Driver); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`

	// Extra CORS origins beyond the built-in storefront domains,
	// comma-separated.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"STOREFRONT_DB_DSN"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"STOREFRONT_DB_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.Host == "" || db.User == "" || db.Name == "" {
		return fmt.Errorf("db config incomplete: set STOREFRONT_DB_DSN or host/user/name")
	}
	db.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(db.User),
		url.QueryEscape(db.Password),
		db.Host,
		db.Port,
		db.Name,
		db.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

const (
	OrdersDriverPostgres = "postgres"
	OrdersDriverHosted   = "hosted"
)

// OrdersConfig selects where order documents are persisted.
type OrdersConfig struct {
	Driver string `envconfig:"STOREFRONT_ORDERS_DRIVER" default:"postgres"`
}

// DocstoreConfig points at the hosted document store (Supabase-style REST API).
type DocstoreConfig struct {
	URL        string        `envconfig:"STOREFRONT_DOCSTORE_URL"`
	APIKey     string        `envconfig:"STOREFRONT_DOCSTORE_API_KEY"`
	ServiceKey string        `envconfig:"STOREFRONT_DOCSTORE_SERVICE_KEY"`
	Table      string        `envconfig:"STOREFRONT_DOCSTORE_TABLE" default:"orders"`
	Timeout    time.Duration `envconfig:"STOREFRONT_DOCSTORE_TIMEOUT" default:"10s"`
}

func (d DocstoreConfig) validate(driver string) error {
	if driver != OrdersDriverHosted {
		return nil
	}
	if d.URL == "" || d.APIKey == "" {
		return fmt.Errorf("hosted orders driver requires STOREFRONT_DOCSTORE_URL and STOREFRONT_DOCSTORE_API_KEY")
	}
	return nil
}

type PaystackConfig struct {
	PublicKey     string        `envconfig:"STOREFRONT_PAYSTACK_PUBLIC_KEY" required:"true"`
	SecretKey     string        `envconfig:"STOREFRONT_PAYSTACK_SECRET_KEY"`
	WebhookSecret string        `envconfig:"STOREFRONT_PAYSTACK_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"STOREFRONT_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	ScriptURL     string        `envconfig:"STOREFRONT_PAYSTACK_SCRIPT_URL" default:"https://js.paystack.co/v1/inline.js"`
	Timeout       time.Duration `envconfig:"STOREFRONT_PAYSTACK_TIMEOUT" default:"10s"`
}

type CheckoutConfig struct {
	Currency       string        `envconfig:"STOREFRONT_CHECKOUT_CURRENCY" default:"NGN"`
	TransportFee   string        `envconfig:"STOREFRONT_CHECKOUT_TRANSPORT_FEE" default:"1000"`
	DeliverWithin  time.Duration `envconfig:"STOREFRONT_CHECKOUT_DELIVER_WITHIN" default:"48h"`
	AttemptTTL     time.Duration `envconfig:"STOREFRONT_CHECKOUT_ATTEMPT_TTL" default:"30m"`
	SubmitGuardTTL time.Duration `envconfig:"STOREFRONT_CHECKOUT_SUBMIT_GUARD_TTL" default:"2m"`
}

// VerifyConfig configures the optional payment verification endpoint. An
// empty URL means the gateway success callback is trusted directly.
type VerifyConfig struct {
	URL     string        `envconfig:"STOREFRONT_VERIFY_URL"`
	Timeout time.Duration `envconfig:"STOREFRONT_VERIFY_TIMEOUT" default:"10s"`
}

func (v VerifyConfig) Configured() bool {
	return strings.TrimSpace(v.URL) != ""
}

type MailerConfig struct {
	APIKey     string `envconfig:"STOREFRONT_MAILER_API_KEY"`
	FromEmail  string `envconfig:"STOREFRONT_MAILER_FROM"`
	AdminEmail string `envconfig:"STOREFRONT_MAILER_ADMIN_EMAIL"`
}

func (m MailerConfig) Configured() bool {
	return m.APIKey != "" && m.FromEmail != "" && m.AdminEmail != ""
}
