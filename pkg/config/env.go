package config

// EnvPrefix is handed to envconfig; every field tag already carries the full name.
const EnvPrefix = "AQUAFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "AQUAFLOW_APP_ENV"
	EnvPort     = "AQUAFLOW_APP_PORT"
	EnvLogLevel = "AQUAFLOW_LOG_LEVEL"

	EnvDBDSN  = "AQUAFLOW_DB_DSN"
	EnvDBHost = "AQUAFLOW_DB_HOST"
	EnvDBUser = "AQUAFLOW_DB_USER"
	EnvDBName = "AQUAFLOW_DB_NAME"

	EnvRedisURL = "AQUAFLOW_REDIS_URL"

	EnvJWTSecret              = "AQUAFLOW_JWT_SECRET"
	EnvJWTIssuer              = "AQUAFLOW_JWT_ISSUER"
	EnvJWTExpMins             = "AQUAFLOW_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "AQUAFLOW_REFRESH_TOKEN_TTL_MINUTES"

	EnvOTPCode = "AQUAFLOW_OTP_CODE"
	EnvOTPTTL  = "AQUAFLOW_OTP_TTL"

	EnvPaymentsOrderSuccessRate   = "AQUAFLOW_PAYMENTS_ORDER_SUCCESS_RATE"
	EnvPaymentsMonthlySuccessRate = "AQUAFLOW_PAYMENTS_MONTHLY_SUCCESS_RATE"

	EnvUseSQLite = "AQUAFLOW_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
