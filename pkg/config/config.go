package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Admin        AdminConfig
	PhonePe      PhonePeConfig
	Cashfree     CashfreeConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Pricing      PricingConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"RECOLORA_APP_ENV" required:"true"`
	Port         string `envconfig:"RECOLORA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RECOLORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RECOLORA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RECOLORA_DB_DSN"`
	Driver string `envconfig:"RECOLORA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RECOLORA_DB_HOST"`
	LegacyPort     int    `envconfig:"RECOLORA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RECOLORA_DB_USER"`
	LegacyPassword string `envconfig:"RECOLORA_DB_PASSWORD"`
	LegacyName     string `envconfig:"RECOLORA_DB_NAME"`
	LegacySSLMode  string `envconfig:"RECOLORA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RECOLORA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RECOLORA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RECOLORA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RECOLORA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RECOLORA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RECOLORA_REDIS_ADDR"`
	Password     string        `envconfig:"RECOLORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"RECOLORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RECOLORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RECOLORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RECOLORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RECOLORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RECOLORA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig backs the optional auth-provider adapter. Anonymous purchase
// flows are permitted, so the secret is not required at boot.
type JWTConfig struct {
	Secret string `envconfig:"RECOLORA_JWT_SECRET"`
	Issuer string `envconfig:"RECOLORA_JWT_ISSUER" default:"recolora"`
}

// AdminConfig guards operator endpoints that bypass per-user authorization.
type AdminConfig struct {
	Key string `envconfig:"RECOLORA_ADMIN_KEY" required:"true"`
}

type PhonePeConfig struct {
	ClientID        string        `envconfig:"RECOLORA_PHONEPE_CLIENT_ID" required:"true"`
	ClientSecret    string        `envconfig:"RECOLORA_PHONEPE_CLIENT_SECRET" required:"true"`
	ClientVersion   string        `envconfig:"RECOLORA_PHONEPE_CLIENT_VERSION" default:"1"`
	Env             string        `envconfig:"RECOLORA_PHONEPE_ENV" default:"sandbox"`
	CallbackUser    string        `envconfig:"RECOLORA_PHONEPE_CALLBACK_USER" required:"true"`
	CallbackPass    string        `envconfig:"RECOLORA_PHONEPE_CALLBACK_PASS" required:"true"`
	RedirectBaseURL string        `envconfig:"RECOLORA_PHONEPE_REDIRECT_BASE_URL" required:"true"`
	OrderExpiry     time.Duration `envconfig:"RECOLORA_PHONEPE_ORDER_EXPIRY" default:"20m"`
	RequestTimeout  time.Duration `envconfig:"RECOLORA_PHONEPE_REQUEST_TIMEOUT" default:"10s"`
}

// Environment returns the normalized PhonePe environment (sandbox/production).
func (p PhonePeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// CashfreeConfig keeps the legacy webhook path verifiable.
type CashfreeConfig struct {
	WebhookSecret string `envconfig:"RECOLORA_CASHFREE_WEBHOOK_SECRET"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RECOLORA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"RECOLORA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RECOLORA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"RECOLORA_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"RECOLORA_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"RECOLORA_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type PubSubConfig struct {
	PaymentsTopic        string `envconfig:"RECOLORA_PUBSUB_PAYMENTS_TOPIC" required:"true"`
	PaymentsSubscription string `envconfig:"RECOLORA_PUBSUB_PAYMENTS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RECOLORA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RECOLORA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RECOLORA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PricingConfig holds the per-image price points in paise.
type PricingConfig struct {
	SingleImagePaise int64  `envconfig:"RECOLORA_PRICE_SINGLE_PAISE" default:"4900"`
	UpscalePaise     int64  `envconfig:"RECOLORA_PRICE_UPSCALE_PAISE" default:"9900"`
	Currency         string `envconfig:"RECOLORA_CURRENCY" default:"INR"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RECOLORA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RECOLORA_AUTO_MIGRATE" default:"false"`
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
