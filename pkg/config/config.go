package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	CORS          CORSConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Payments      PaymentsConfig
	Square        SquareConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payments.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CATCHY_APP_ENV" required:"true"`
	Port         string `envconfig:"CATCHY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CATCHY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CATCHY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CATCHY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CATCHY_DB_DSN"`
	Driver string `envconfig:"CATCHY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CATCHY_DB_HOST"`
	LegacyPort     int    `envconfig:"CATCHY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CATCHY_DB_USER"`
	LegacyPassword string `envconfig:"CATCHY_DB_PASSWORD"`
	LegacyName     string `envconfig:"CATCHY_DB_NAME"`
	LegacySSLMode  string `envconfig:"CATCHY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CATCHY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CATCHY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CATCHY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CATCHY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"CATCHY_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CATCHY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CATCHY_REDIS_ADDR"`
	Password     string        `envconfig:"CATCHY_REDIS_PASSWORD"`
	DB           int           `envconfig:"CATCHY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CATCHY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CATCHY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CATCHY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CATCHY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CATCHY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CATCHY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CATCHY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CATCHY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CATCHY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CATCHY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CATCHY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CATCHY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CATCHY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CATCHY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CATCHY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CATCHY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CATCHY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CATCHY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CATCHY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CATCHY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CATCHY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CATCHY_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"CATCHY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CATCHY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CATCHY_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CATCHY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CATCHY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"CATCHY_PUBSUB_ORDERS_TOPIC" required:"true"`
	UsersTopic               string `envconfig:"CATCHY_PUBSUB_USERS_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"CATCHY_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	UserEventsSubscription   string `envconfig:"CATCHY_PUBSUB_USER_EVENTS_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription    string `envconfig:"CATCHY_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset                string `envconfig:"CATCHY_BIGQUERY_DATASET" default:"catchy_market"`
	MarketplaceEventsTable string `envconfig:"CATCHY_BIGQUERY_MARKETPLACE_TABLE" default:"marketplace_events"`
}

// PaymentsConfig controls settlement and the gateway used for card payments.
type PaymentsConfig struct {
	Gateway          string        `envconfig:"CATCHY_PAYMENTS_GATEWAY" default:"simulated"`
	Currency         string        `envconfig:"CATCHY_PAYMENTS_CURRENCY" default:"EGP"`
	SettlementDelay  time.Duration `envconfig:"CATCHY_PAYMENTS_SETTLEMENT_DELAY" default:"2s"`
	FulfillmentDelay time.Duration `envconfig:"CATCHY_PAYMENTS_FULFILLMENT_DELAY" default:"5s"`
}

// GatewayKind returns the normalized gateway name.
func (p PaymentsConfig) GatewayKind() string {
	kind := strings.TrimSpace(strings.ToLower(p.Gateway))
	if kind == "" {
		return PaymentGatewaySimulated
	}
	return kind
}

func (p PaymentsConfig) validate() error {
	switch p.GatewayKind() {
	case PaymentGatewaySimulated, PaymentGatewaySquare:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvPaymentsGateway, PaymentGatewaySimulated, PaymentGatewaySquare)
	}
	if p.SettlementDelay < 0 || p.FulfillmentDelay < 0 {
		return fmt.Errorf("payment delays must not be negative")
	}
	return nil
}

type SquareConfig struct {
	AccessToken string `envconfig:"CATCHY_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"CATCHY_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"CATCHY_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CATCHY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CATCHY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CATCHY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CronConfig drives the cron worker cadence and retention windows.
type CronConfig struct {
	Interval                  time.Duration `envconfig:"CATCHY_CRON_INTERVAL" default:"30s"`
	LockTTL                   time.Duration `envconfig:"CATCHY_CRON_LOCK_TTL" default:"5m"`
	FulfillmentBatchSize      int           `envconfig:"CATCHY_CRON_FULFILLMENT_BATCH_SIZE" default:"100"`
	NotificationRetentionDays int           `envconfig:"CATCHY_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OutboxRetentionDays       int           `envconfig:"CATCHY_CRON_OUTBOX_RETENTION_DAYS" default:"7"`
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
