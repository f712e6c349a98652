package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	OTP           OTPConfig
	Payments      PaymentsConfig
	Delivery      DeliveryConfig
	FeatureFlags  FeatureFlagsConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Payments.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env               string        `envconfig:"AQUAFLOW_APP_ENV" required:"true"`
	Port              string        `envconfig:"AQUAFLOW_APP_PORT" required:"true"`
	LogLevel          string        `envconfig:"AQUAFLOW_LOG_LEVEL" default:"info"`
	LogFormat         string        `envconfig:"AQUAFLOW_LOG_FORMAT" default:"json"`
	LogWarnStack      bool          `envconfig:"AQUAFLOW_LOG_WARN_STACK" default:"false"`
	CORSOrigins       []string      `envconfig:"AQUAFLOW_CORS_ORIGINS" default:"*"`
	ReadHeaderTimeout time.Duration `envconfig:"AQUAFLOW_HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `envconfig:"AQUAFLOW_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout      time.Duration `envconfig:"AQUAFLOW_HTTP_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout       time.Duration `envconfig:"AQUAFLOW_HTTP_IDLE_TIMEOUT" default:"60s"`
	RateLimit         int64         `envconfig:"AQUAFLOW_HTTP_RATE_LIMIT" default:"120"`
	RateLimitWindow   time.Duration `envconfig:"AQUAFLOW_HTTP_RATE_LIMIT_WINDOW" default:"1m"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AQUAFLOW_DB_DSN"`
	Driver string `envconfig:"AQUAFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AQUAFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"AQUAFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AQUAFLOW_DB_USER"`
	LegacyPassword string `envconfig:"AQUAFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"AQUAFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"AQUAFLOW_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"AQUAFLOW_SQLITE_PATH" default:"aquaflow.db"`

	MaxOpenConns    int           `envconfig:"AQUAFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AQUAFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AQUAFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AQUAFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"AQUAFLOW_DB_SLOW_QUERY" default:"500ms"`
	LogQueries         bool          `envconfig:"AQUAFLOW_DB_LOG_QUERIES" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AQUAFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AQUAFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"AQUAFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"AQUAFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AQUAFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AQUAFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AQUAFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AQUAFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AQUAFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"AQUAFLOW_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"AQUAFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"AQUAFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"AQUAFLOW_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AQUAFLOW_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AQUAFLOW_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AQUAFLOW_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AQUAFLOW_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AQUAFLOW_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	OTPWindow          time.Duration `envconfig:"AQUAFLOW_AUTH_RATE_LIMIT_OTP_WINDOW" default:"10m"`
	OTPPhoneLimit      int           `envconfig:"AQUAFLOW_AUTH_RATE_LIMIT_OTP_PHONE_LIMIT" default:"5"`
	OTPIPLimit         int           `envconfig:"AQUAFLOW_AUTH_RATE_LIMIT_OTP_IP_LIMIT" default:"30"`
	LoginWindow        time.Duration `envconfig:"AQUAFLOW_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AQUAFLOW_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AQUAFLOW_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AQUAFLOW_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AQUAFLOW_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AQUAFLOW_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// OTPConfig drives the mock one-time-password provider used for user login.
type OTPConfig struct {
	Code           string        `envconfig:"AQUAFLOW_OTP_CODE" default:"123456"`
	TTL            time.Duration `envconfig:"AQUAFLOW_OTP_TTL" default:"5m"`
	MaxAttempts    int           `envconfig:"AQUAFLOW_OTP_MAX_ATTEMPTS" default:"3"`
	ResendCooldown time.Duration `envconfig:"AQUAFLOW_OTP_RESEND_COOLDOWN" default:"1m"`
	BlockThreshold int           `envconfig:"AQUAFLOW_OTP_BLOCK_THRESHOLD" default:"5"`
	BlockDuration  time.Duration `envconfig:"AQUAFLOW_OTP_BLOCK_DURATION" default:"30m"`
}

// PaymentsConfig tunes the mock payment gateway.
type PaymentsConfig struct {
	OrderSuccessRate   float64 `envconfig:"AQUAFLOW_PAYMENTS_ORDER_SUCCESS_RATE" default:"0.9"`
	MonthlySuccessRate float64 `envconfig:"AQUAFLOW_PAYMENTS_MONTHLY_SUCCESS_RATE" default:"0.95"`
	InvoiceBaseURL     string  `envconfig:"AQUAFLOW_PAYMENTS_INVOICE_BASE_URL" default:"https://invoices.aquaflow.local"`
}

func (p PaymentsConfig) validate() error {
	for name, rate := range map[string]float64{
		EnvPaymentsOrderSuccessRate:   p.OrderSuccessRate,
		EnvPaymentsMonthlySuccessRate: p.MonthlySuccessRate,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return nil
}

type DeliveryConfig struct {
	SearchRadiusKM float64       `envconfig:"AQUAFLOW_DELIVERY_SEARCH_RADIUS_KM" default:"10"`
	SearchLimit    int           `envconfig:"AQUAFLOW_DELIVERY_SEARCH_LIMIT" default:"50"`
	EstimatedETA   time.Duration `envconfig:"AQUAFLOW_DELIVERY_ESTIMATED_ETA" default:"30m"`
	DefaultPrice   string        `envconfig:"AQUAFLOW_DELIVERY_DEFAULT_PRICE_PER_JAR" default:"30"`
	TimeZone       string        `envconfig:"AQUAFLOW_DELIVERY_TIMEZONE" default:"Asia/Kolkata"`
}

// Location resolves the zone shop opening hours are written in. Hosts without
// tzdata fall back to a fixed IST offset.
func (d DeliveryConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(strings.TrimSpace(d.TimeZone)); err == nil && d.TimeZone != "" {
		return loc
	}
	return time.FixedZone("IST", 5*3600+1800)
}

// DefaultPricePerJar parses the configured fallback jar price.
func (d DeliveryConfig) DefaultPricePerJar() decimal.Decimal {
	price, err := decimal.NewFromString(strings.TrimSpace(d.DefaultPrice))
	if err != nil || !price.IsPositive() {
		return decimal.NewFromInt(30)
	}
	return price
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AQUAFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AQUAFLOW_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"AQUAFLOW_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"AQUAFLOW_CRON_LOCK_TTL" default:"10m"`
	// JobTimeout caps each job; keep jobs x timeout under LockTTL.
	JobTimeout time.Duration `envconfig:"AQUAFLOW_CRON_JOB_TIMEOUT" default:"4m"`
	// NotificationRetention is how long read notifications are kept.
	NotificationRetention time.Duration `envconfig:"AQUAFLOW_NOTIFICATION_RETENTION" default:"2160h"`
	CleanupBatchSize      int           `envconfig:"AQUAFLOW_NOTIFICATION_CLEANUP_BATCH" default:"500"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
