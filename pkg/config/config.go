package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "TIFFINBOX"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "TIFFINBOX_DB_DSN"
	EnvDBHost = "TIFFINBOX_DB_HOST"
	EnvDBUser = "TIFFINBOX_DB_USER"
	EnvDBName = "TIFFINBOX_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Rewards      RewardsConfig
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
	Env          string `envconfig:"TIFFINBOX_APP_ENV" required:"true"`
	Port         string `envconfig:"TIFFINBOX_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TIFFINBOX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TIFFINBOX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TIFFINBOX_DB_DSN"`
	Driver string `envconfig:"TIFFINBOX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TIFFINBOX_DB_HOST"`
	LegacyPort     int    `envconfig:"TIFFINBOX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TIFFINBOX_DB_USER"`
	LegacyPassword string `envconfig:"TIFFINBOX_DB_PASSWORD"`
	LegacyName     string `envconfig:"TIFFINBOX_DB_NAME"`
	LegacySSLMode  string `envconfig:"TIFFINBOX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TIFFINBOX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TIFFINBOX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TIFFINBOX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TIFFINBOX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TIFFINBOX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TIFFINBOX_REDIS_ADDR"`
	Password     string        `envconfig:"TIFFINBOX_REDIS_PASSWORD"`
	DB           int           `envconfig:"TIFFINBOX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TIFFINBOX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TIFFINBOX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TIFFINBOX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TIFFINBOX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TIFFINBOX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TIFFINBOX_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TIFFINBOX_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TIFFINBOX_JWT_EXPIRATION_MINUTES" required:"true"`
}

type RateLimitConfig struct {
	DepositWindow time.Duration `envconfig:"TIFFINBOX_RATE_LIMIT_DEPOSIT_WINDOW" default:"1m"`
	DepositLimit  int           `envconfig:"TIFFINBOX_RATE_LIMIT_DEPOSIT_LIMIT" default:"5"`
	OTPWindow     time.Duration `envconfig:"TIFFINBOX_RATE_LIMIT_OTP_WINDOW" default:"1m"`
	OTPLimit      int           `envconfig:"TIFFINBOX_RATE_LIMIT_OTP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TIFFINBOX_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"TIFFINBOX_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"TIFFINBOX_PUBSUB_NOTIFICATION_TOPIC" default:"tb-notification-events"`
	NotificationSubscription string `envconfig:"TIFFINBOX_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TIFFINBOX_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TIFFINBOX_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TIFFINBOX_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type RewardsConfig struct {
	// PaisePerCoin is the spend needed to earn a single wallet coin.
	PaisePerCoin int `envconfig:"TIFFINBOX_REWARDS_PAISE_PER_COIN" default:"2000"`
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
