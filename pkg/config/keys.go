package config

// EnvPrefix scopes every environment variable read by envconfig.
const EnvPrefix = "PROCUREHUB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside struct tags (tests, error
// messages, deploy tooling).
const (
	EnvAppEnv   = "PROCUREHUB_APP_ENV"
	EnvPort     = "PROCUREHUB_APP_PORT"
	EnvLogLevel = "PROCUREHUB_LOG_LEVEL"

	EnvDBDSN  = "PROCUREHUB_DB_DSN"
	EnvDBHost = "PROCUREHUB_DB_HOST"
	EnvDBPort = "PROCUREHUB_DB_PORT"
	EnvDBUser = "PROCUREHUB_DB_USER"
	EnvDBName = "PROCUREHUB_DB_NAME"

	EnvRedisURL = "PROCUREHUB_REDIS_URL"

	EnvJWTSecret  = "PROCUREHUB_JWT_SECRET"
	EnvJWTIssuer  = "PROCUREHUB_JWT_ISSUER"
	EnvJWTExpMins = "PROCUREHUB_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
