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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	CORS          CORSConfig
	Cron          CronConfig
	Metrics       MetricsConfig
	Seed          SeedConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"PROCUREHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"PROCUREHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PROCUREHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PROCUREHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PROCUREHUB_DB_DSN"`
	Driver string `envconfig:"PROCUREHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PROCUREHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"PROCUREHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PROCUREHUB_DB_USER"`
	LegacyPassword string `envconfig:"PROCUREHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"PROCUREHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"PROCUREHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PROCUREHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PROCUREHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PROCUREHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PROCUREHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PROCUREHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PROCUREHUB_REDIS_ADDR"`
	Password     string        `envconfig:"PROCUREHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"PROCUREHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PROCUREHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PROCUREHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PROCUREHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PROCUREHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PROCUREHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PROCUREHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PROCUREHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PROCUREHUB_JWT_EXPIRATION_MINUTES" required:"true"`
}

// AccessTokenTTL returns the access token lifetime; sessions share it.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PROCUREHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PROCUREHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PROCUREHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PROCUREHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PROCUREHUB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"PROCUREHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"PROCUREHUB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"PROCUREHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PROCUREHUB_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type CronConfig struct {
	TickInterval time.Duration `envconfig:"PROCUREHUB_CRON_TICK_INTERVAL" default:"1m"`
	LockTTL      time.Duration `envconfig:"PROCUREHUB_CRON_LOCK_TTL" default:"10m"`
}

type MetricsConfig struct {
	Namespace string `envconfig:"PROCUREHUB_METRICS_NAMESPACE" default:"procurehub"`
	Port      string `envconfig:"PROCUREHUB_METRICS_PORT" default:"9100"`
}

// SeedConfig bootstraps the first admin account when the users table is empty.
type SeedConfig struct {
	AdminEmail    string `envconfig:"PROCUREHUB_SEED_ADMIN_EMAIL"`
	AdminName     string `envconfig:"PROCUREHUB_SEED_ADMIN_NAME" default:"Administrator"`
	AdminPassword string `envconfig:"PROCUREHUB_SEED_ADMIN_PASSWORD"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PROCUREHUB_AUTO_MIGRATE" default:"false"`
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
