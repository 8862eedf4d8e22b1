package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "IWANYU"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "IWANYU_APP_ENV"
	EnvPort           = "IWANYU_APP_PORT"
	EnvDBDSN          = "IWANYU_DB_DSN"
	EnvDBHost         = "IWANYU_DB_HOST"
	EnvDBUser         = "IWANYU_DB_USER"
	EnvDBName         = "IWANYU_DB_NAME"
	EnvRedisURL       = "IWANYU_REDIS_URL"
	EnvJWTSecret      = "IWANYU_JWT_SECRET"
	EnvJWTIssuer      = "IWANYU_JWT_ISSUER"
	EnvJWTExpMins     = "IWANYU_JWT_EXPIRATION_MINUTES"
	EnvOutboxSink     = "IWANYU_OUTBOX_PUBLISHER"
	EnvKafkaBrokers   = "IWANYU_KAFKA_BROKERS"
	EnvGCPProjectID   = "IWANYU_GCP_PROJECT_ID"
	EnvFlwSecretKey   = "IWANYU_FLUTTERWAVE_SECRET_KEY"
	EnvFlwWebhookHash = "IWANYU_FLUTTERWAVE_WEBHOOK_SECRET"

	OutboxSinkPubSub = "pubsub"
	OutboxSinkKafka  = "kafka"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Outbox        OutboxConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Kafka         KafkaConfig
	Flutterwave   FlutterwaveConfig
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
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"IWANYU_APP_ENV" required:"true"`
	Port         string `envconfig:"IWANYU_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"IWANYU_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"IWANYU_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"IWANYU_PUBLIC_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN string `envconfig:"IWANYU_DB_DSN"`

	LegacyHost     string `envconfig:"IWANYU_DB_HOST"`
	LegacyPort     int    `envconfig:"IWANYU_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"IWANYU_DB_USER"`
	LegacyPassword string `envconfig:"IWANYU_DB_PASSWORD"`
	LegacyName     string `envconfig:"IWANYU_DB_NAME"`
	LegacySSLMode  string `envconfig:"IWANYU_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"IWANYU_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"IWANYU_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"IWANYU_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"IWANYU_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the threshold above which statements are logged at warn.
	SlowQuery time.Duration `envconfig:"IWANYU_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"IWANYU_REDIS_URL" required:"true"`
	Address      string        `envconfig:"IWANYU_REDIS_ADDR"`
	Password     string        `envconfig:"IWANYU_REDIS_PASSWORD"`
	DB           int           `envconfig:"IWANYU_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"IWANYU_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"IWANYU_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"IWANYU_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"IWANYU_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"IWANYU_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"IWANYU_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"IWANYU_JWT_ISSUER" default:"iwanyu"`
	ExpirationMinutes int    `envconfig:"IWANYU_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// TokenTTL is the lifetime of an access token and of its session row.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"IWANYU_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"IWANYU_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"IWANYU_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"IWANYU_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"IWANYU_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"IWANYU_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"IWANYU_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"IWANYU_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"IWANYU_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"IWANYU_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"IWANYU_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// RateLimitConfig throttles authenticated API traffic per user, falling back
// to the client IP.
type RateLimitConfig struct {
	Window   time.Duration `envconfig:"IWANYU_RATE_LIMIT_WINDOW" default:"1m"`
	Requests int           `envconfig:"IWANYU_RATE_LIMIT_REQUESTS" default:"300"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"IWANYU_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"IWANYU_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type OutboxConfig struct {
	Publisher      string `envconfig:"IWANYU_OUTBOX_PUBLISHER" default:"pubsub"`
	BatchSize      int    `envconfig:"IWANYU_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"IWANYU_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"IWANYU_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o *OutboxConfig) validate() error {
	o.Publisher = strings.ToLower(strings.TrimSpace(o.Publisher))
	switch o.Publisher {
	case "":
		o.Publisher = OutboxSinkPubSub
	case OutboxSinkPubSub, OutboxSinkKafka:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvOutboxSink, OutboxSinkPubSub, OutboxSinkKafka)
	}
	return nil
}

type GCPConfig struct {
	ProjectID string `envconfig:"IWANYU_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"IWANYU_PUBSUB_DOMAIN_TOPIC" default:"iwanyu-domain-events"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"IWANYU_KAFKA_BROKERS"`
	Topic        string        `envconfig:"IWANYU_KAFKA_TOPIC" default:"iwanyu.domain-events"`
	WriteTimeout time.Duration `envconfig:"IWANYU_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

type FlutterwaveConfig struct {
	BaseURL       string        `envconfig:"IWANYU_FLUTTERWAVE_BASE_URL" default:"https://api.flutterwave.com/v3"`
	SecretKey     string        `envconfig:"IWANYU_FLUTTERWAVE_SECRET_KEY"`
	WebhookSecret string        `envconfig:"IWANYU_FLUTTERWAVE_WEBHOOK_SECRET"`
	Currency      string        `envconfig:"IWANYU_FLUTTERWAVE_CURRENCY" default:"RWF"`
	RedirectURL   string        `envconfig:"IWANYU_FLUTTERWAVE_REDIRECT_URL"`
	Timeout       time.Duration `envconfig:"IWANYU_FLUTTERWAVE_TIMEOUT" default:"15s"`
	// WebhookDedupeTTL bounds how long a processed delivery id is remembered.
	WebhookDedupeTTL time.Duration `envconfig:"IWANYU_FLUTTERWAVE_WEBHOOK_DEDUPE_TTL" default:"72h"`
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"IWANYU_CRON_INTERVAL" default:"5m"`
	OrderTTL         time.Duration `envconfig:"IWANYU_CRON_ORDER_TTL" default:"48h"`
	SessionRetention time.Duration `envconfig:"IWANYU_CRON_SESSION_RETENTION" default:"720h"`
	OutboxRetention  time.Duration `envconfig:"IWANYU_CRON_OUTBOX_RETENTION" default:"720h"`
	LockTTL          time.Duration `envconfig:"IWANYU_CRON_LOCK_TTL" default:"4m"`
	JobTimeout       time.Duration `envconfig:"IWANYU_CRON_JOB_TIMEOUT" default:"2m"`
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
