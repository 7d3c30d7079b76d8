package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SOUNDSMITH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "SOUNDSMITH_APP_ENV"
	EnvPort                   = "SOUNDSMITH_APP_PORT"
	EnvDBDSN                  = "SOUNDSMITH_DB_DSN"
	EnvDBHost                 = "SOUNDSMITH_DB_HOST"
	EnvDBUser                 = "SOUNDSMITH_DB_USER"
	EnvDBName                 = "SOUNDSMITH_DB_NAME"
	EnvRedisURL               = "SOUNDSMITH_REDIS_URL"
	EnvJWTSecret              = "SOUNDSMITH_JWT_SECRET"
	EnvJWTIssuer              = "SOUNDSMITH_JWT_ISSUER"
	EnvJWTExpMins             = "SOUNDSMITH_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SOUNDSMITH_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "SOUNDSMITH_GCP_PROJECT_ID"
	EnvGCSBucket              = "SOUNDSMITH_GCS_BUCKET_NAME"
	EnvGCSUploadExpiry        = "SOUNDSMITH_GCS_UPLOAD_URL_EXPIRY"
	EnvGCSDownloadExpiry      = "SOUNDSMITH_GCS_DOWNLOAD_URL_EXPIRY"
	EnvPubSubGenerationTopic  = "SOUNDSMITH_PUBSUB_GENERATION_TOPIC"
	EnvPubSubNotificationSub  = "SOUNDSMITH_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvProviderBaseURL        = "SOUNDSMITH_PROVIDER_BASE_URL"
	EnvProviderAPIKey         = "SOUNDSMITH_PROVIDER_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Stripe        StripeConfig
	Provider      ProviderConfig
	Generation    GenerationConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOUNDSMITH_APP_ENV" required:"true"`
	Port         string `envconfig:"SOUNDSMITH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOUNDSMITH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOUNDSMITH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SOUNDSMITH_DB_DSN"`
	Driver string `envconfig:"SOUNDSMITH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOUNDSMITH_DB_HOST"`
	LegacyPort     int    `envconfig:"SOUNDSMITH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOUNDSMITH_DB_USER"`
	LegacyPassword string `envconfig:"SOUNDSMITH_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOUNDSMITH_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOUNDSMITH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOUNDSMITH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOUNDSMITH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOUNDSMITH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOUNDSMITH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOUNDSMITH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOUNDSMITH_REDIS_ADDR"`
	Password     string        `envconfig:"SOUNDSMITH_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOUNDSMITH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOUNDSMITH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOUNDSMITH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOUNDSMITH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOUNDSMITH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOUNDSMITH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SOUNDSMITH_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SOUNDSMITH_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SOUNDSMITH_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SOUNDSMITH_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SOUNDSMITH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SOUNDSMITH_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SOUNDSMITH_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SOUNDSMITH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SOUNDSMITH_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SOUNDSMITH_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SOUNDSMITH_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SOUNDSMITH_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SOUNDSMITH_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SOUNDSMITH_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SOUNDSMITH_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SOUNDSMITH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SOUNDSMITH_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SOUNDSMITH_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SOUNDSMITH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SOUNDSMITH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"SOUNDSMITH_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"SOUNDSMITH_GCS_UPLOAD_URL_EXPIRY" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"SOUNDSMITH_GCS_DOWNLOAD_URL_EXPIRY" required:"true"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"SOUNDSMITH_MAX_UPLOAD_MB" default:"50"`
}

type PubSubConfig struct {
	GenerationTopic          string `envconfig:"SOUNDSMITH_PUBSUB_GENERATION_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"SOUNDSMITH_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type StripeConfig struct {
	APIKey string `envconfig:"SOUNDSMITH_STRIPE_API_KEY"`
	Secret string `envconfig:"SOUNDSMITH_STRIPE_SECRET"`
	Env    string `envconfig:"SOUNDSMITH_STRIPE_ENV" default:"test"`

	SuccessURL string `envconfig:"SOUNDSMITH_STRIPE_SUCCESS_URL"`
	CancelURL  string `envconfig:"SOUNDSMITH_STRIPE_CANCEL_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// ProviderConfig points at the external synthesis provider.
type ProviderConfig struct {
	BaseURL     string        `envconfig:"SOUNDSMITH_PROVIDER_BASE_URL" required:"true"`
	APIKey      string        `envconfig:"SOUNDSMITH_PROVIDER_API_KEY" required:"true"`
	HTTPTimeout time.Duration `envconfig:"SOUNDSMITH_PROVIDER_HTTP_TIMEOUT" default:"15s"`
}

// GenerationConfig tunes the status poll loops driven by the worker.
type GenerationConfig struct {
	MusicPollInterval time.Duration `envconfig:"SOUNDSMITH_GENERATION_MUSIC_POLL_INTERVAL" default:"3s"`
	ImagePollInterval time.Duration `envconfig:"SOUNDSMITH_GENERATION_IMAGE_POLL_INTERVAL" default:"2s"`
	MaxPollAttempts   int           `envconfig:"SOUNDSMITH_GENERATION_MAX_POLL_ATTEMPTS" default:"30"`
	ClaimBatchSize    int           `envconfig:"SOUNDSMITH_GENERATION_CLAIM_BATCH_SIZE" default:"10"`
	ClaimInterval     time.Duration `envconfig:"SOUNDSMITH_GENERATION_CLAIM_INTERVAL" default:"2s"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SOUNDSMITH_CRON_INTERVAL" default:"1h"`
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
