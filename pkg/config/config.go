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
	Checkout      CheckoutConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Stripe        StripeConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"SHOWCART_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOWCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOWCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOWCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOWCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHOWCART_DB_DSN"`
	Driver string `envconfig:"SHOWCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOWCART_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOWCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOWCART_DB_USER"`
	LegacyPassword string `envconfig:"SHOWCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOWCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOWCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOWCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOWCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOWCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOWCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOWCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOWCART_REDIS_ADDR"`
	Password     string        `envconfig:"SHOWCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOWCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOWCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOWCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOWCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOWCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOWCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SHOWCART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SHOWCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SHOWCART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SHOWCART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SHOWCART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SHOWCART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SHOWCART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SHOWCART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SHOWCART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"SHOWCART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"SHOWCART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"SHOWCART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOWCART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOWCART_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig scopes the order lifecycle: how long an unpaid order
// holds its reservation, how often the sweeper runs, and the platform
// cut applied when a batch settles.
type CheckoutConfig struct {
	PendingOrderTTL     time.Duration `envconfig:"SHOWCART_CHECKOUT_PENDING_ORDER_TTL" default:"8m"`
	SweepInterval       time.Duration `envconfig:"SHOWCART_CHECKOUT_SWEEP_INTERVAL" default:"1m"`
	PlatformFeeBps      int           `envconfig:"SHOWCART_CHECKOUT_PLATFORM_FEE_BPS" default:"800"`
	MaxQuantityPerOrder int           `envconfig:"SHOWCART_CHECKOUT_MAX_QUANTITY_PER_ORDER" default:"10"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SHOWCART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SHOWCART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SHOWCART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SHOWCART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrderTopic               string `envconfig:"SHOWCART_PUBSUB_ORDER_TOPIC" required:"true"`
	OrderDLQTopic            string `envconfig:"SHOWCART_PUBSUB_ORDER_DLQ_TOPIC"`
	NotificationSubscription string `envconfig:"SHOWCART_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription    string `envconfig:"SHOWCART_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset             string `envconfig:"SHOWCART_BIGQUERY_DATASET" default:"showcart"`
	LiveSaleEventsTable string `envconfig:"SHOWCART_BIGQUERY_LIVE_SALE_TABLE" default:"live_sale_events"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"SHOWCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"SHOWCART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"SHOWCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsPort    string `envconfig:"SHOWCART_OUTBOX_METRICS_PORT" default:""`
}

type StripeConfig struct {
	APIKey string `envconfig:"SHOWCART_STRIPE_API_KEY"`
	Secret string `envconfig:"SHOWCART_STRIPE_SECRET"`
	Env    string `envconfig:"SHOWCART_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
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
