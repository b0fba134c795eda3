package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "carehub"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "CAREHUB_APP_ENV"
	EnvPort                   = "CAREHUB_APP_PORT"
	EnvDBDSN                  = "CAREHUB_DB_DSN"
	EnvDBHost                 = "CAREHUB_DB_HOST"
	EnvDBUser                 = "CAREHUB_DB_USER"
	EnvDBName                 = "CAREHUB_DB_NAME"
	EnvRedisURL               = "CAREHUB_REDIS_URL"
	EnvJWTSecret              = "CAREHUB_JWT_SECRET"
	EnvJWTIssuer              = "CAREHUB_JWT_ISSUER"
	EnvJWTExpMins             = "CAREHUB_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CAREHUB_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Pharmacy      PharmacyConfig
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
	Env          string `envconfig:"CAREHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"CAREHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CAREHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CAREHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CAREHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CAREHUB_DB_DSN"`
	Driver string `envconfig:"CAREHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CAREHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"CAREHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CAREHUB_DB_USER"`
	LegacyPassword string `envconfig:"CAREHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"CAREHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"CAREHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CAREHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CAREHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CAREHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CAREHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CAREHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CAREHUB_REDIS_ADDR"`
	Password     string        `envconfig:"CAREHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"CAREHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CAREHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CAREHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CAREHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CAREHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CAREHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CAREHUB_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CAREHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CAREHUB_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CAREHUB_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CAREHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CAREHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CAREHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CAREHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CAREHUB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CAREHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CAREHUB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CAREHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CAREHUB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CAREHUB_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CAREHUB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CAREHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CAREHUB_AUTO_MIGRATE" default:"false"`
}

type PharmacyConfig struct {
	// LowStockThreshold triggers a stock alert when a purchase drains a
	// medication to or below this quantity.
	LowStockThreshold int `envconfig:"CAREHUB_PHARMACY_LOW_STOCK_THRESHOLD" default:"10"`
	// PrescriptionTTL is the age after which the expiry job deactivates
	// unredeemed prescriptions.
	PrescriptionTTL time.Duration `envconfig:"CAREHUB_PHARMACY_PRESCRIPTION_TTL" default:"720h"`
	// IdempotencyTTL bounds how long purchase responses are replayed.
	IdempotencyTTL time.Duration `envconfig:"CAREHUB_PHARMACY_IDEMPOTENCY_TTL" default:"168h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"CAREHUB_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"CAREHUB_CRON_LOCK_TTL" default:"25h"`
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
