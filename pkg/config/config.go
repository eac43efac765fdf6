package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "FOODDASH"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "FOODDASH_APP_ENV"
	EnvDBDSN  = "FOODDASH_DB_DSN"
	EnvDBHost = "FOODDASH_DB_HOST"
	EnvDBUser = "FOODDASH_DB_USER"
	EnvDBName = "FOODDASH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Delivery     DeliveryConfig
	Eventing     EventingConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FOODDASH_APP_ENV" required:"true"`
	Port         string `envconfig:"FOODDASH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FOODDASH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FOODDASH_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"FOODDASH_CORS_ORIGINS" default:"http://localhost:3000"`

	// MetricsPort is where workers expose their Prometheus scrape endpoint.
	MetricsPort string `envconfig:"FOODDASH_METRICS_PORT" default:"9090"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FOODDASH_DB_DSN"`
	Driver string `envconfig:"FOODDASH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FOODDASH_DB_HOST"`
	LegacyPort     int    `envconfig:"FOODDASH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FOODDASH_DB_USER"`
	LegacyPassword string `envconfig:"FOODDASH_DB_PASSWORD"`
	LegacyName     string `envconfig:"FOODDASH_DB_NAME"`
	LegacySSLMode  string `envconfig:"FOODDASH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FOODDASH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FOODDASH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FOODDASH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FOODDASH_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// StatementTimeout bounds every store operation; expiry surfaces as a
	// retryable dependency error rather than an indefinite block.
	StatementTimeout time.Duration `envconfig:"FOODDASH_DB_STATEMENT_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FOODDASH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FOODDASH_REDIS_ADDR"`
	Password     string        `envconfig:"FOODDASH_REDIS_PASSWORD"`
	DB           int           `envconfig:"FOODDASH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FOODDASH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FOODDASH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FOODDASH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FOODDASH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FOODDASH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FOODDASH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FOODDASH_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FOODDASH_JWT_EXPIRATION_MINUTES" default:"60"`
}

type GatewayConfig struct {
	BaseURL        string        `envconfig:"FOODDASH_GATEWAY_BASE_URL" required:"true"`
	MerchantCode   string        `envconfig:"FOODDASH_GATEWAY_MERCHANT_CODE" required:"true"`
	SigningSecret  string        `envconfig:"FOODDASH_GATEWAY_SIGNING_SECRET" required:"true"`
	CallbackURL    string        `envconfig:"FOODDASH_GATEWAY_CALLBACK_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"FOODDASH_GATEWAY_REQUEST_TIMEOUT" default:"10s"`
	IntentExpiry   time.Duration `envconfig:"FOODDASH_GATEWAY_INTENT_EXPIRY" default:"15m"`
}

type DeliveryConfig struct {
	// FlatFeeCents applies when no zone-specific fee matches.
	FlatFeeCents int64 `envconfig:"FOODDASH_DELIVERY_FLAT_FEE_CENTS" default:"500"`
	// ZoneFees maps zone code to fee in cents, e.g. "downtown:300,suburbs:700".
	ZoneFees map[string]int64 `envconfig:"FOODDASH_DELIVERY_ZONE_FEES"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"FOODDASH_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FOODDASH_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"FOODDASH_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	OrdersTopic            string `envconfig:"FOODDASH_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription     string `envconfig:"FOODDASH_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	SettlementTopic        string `envconfig:"FOODDASH_PUBSUB_SETTLEMENT_TOPIC" required:"true"`
	SettlementSubscription string `envconfig:"FOODDASH_PUBSUB_SETTLEMENT_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FOODDASH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FOODDASH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FOODDASH_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
