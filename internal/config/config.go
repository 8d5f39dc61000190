package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/collections-sequencer/internal/catalog"
)

// Config aggregates runtime configuration for the sequencer.
type Config struct {
	App         AppConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Logger      LoggerConfig
	Auth        AuthConfig
	Collections CollectionsConfig
	Messaging   MessagingConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines operator authentication parameters. Operators are
// config-defined credentials, not database records.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	OperatorID            string
	OperatorPasswordHash  string
	AdminID               string
	AdminPasswordHash     string
}

// CollectionsConfig is the per-practice escalation policy read at tick and
// escalate time.
type CollectionsConfig struct {
	MinBalance     decimal.Decimal
	AutoEscalation bool
	// Delay overrides in days, keyed by channel. Zero or missing values fall
	// back to the catalog offsets.
	DelayStatement   int
	DelaySMS         int
	DelayEmail       int
	DelayPhone       int
	DelayFinalNotice int
	DelayAgency      int
	TickCron         string
	TickParallelism  int
}

// MessagingConfig holds stub delivery endpoints for the messaging collaborator.
type MessagingConfig struct {
	EmailFrom  string
	SMSFrom    string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	minBalance, err := decimal.NewFromString(getEnv("COLLECTIONS_MIN_BALANCE", "25.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid COLLECTIONS_MIN_BALANCE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "collections-sequencer"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			OperatorID:            getEnv("AUTH_OPERATOR_ID", "operator"),
			OperatorPasswordHash:  os.Getenv("AUTH_OPERATOR_PASSWORD_HASH"),
			AdminID:               getEnv("AUTH_ADMIN_ID", "admin"),
			AdminPasswordHash:     os.Getenv("AUTH_ADMIN_PASSWORD_HASH"),
		},
		Collections: CollectionsConfig{
			MinBalance:       minBalance,
			AutoEscalation:   getEnvAsBool("COLLECTIONS_AUTO_ESCALATION", true),
			DelayStatement:   getEnvAsInt("COLLECTIONS_DELAY_STATEMENT_DAYS", 0),
			DelaySMS:         getEnvAsInt("COLLECTIONS_DELAY_SMS_DAYS", 0),
			DelayEmail:       getEnvAsInt("COLLECTIONS_DELAY_EMAIL_DAYS", 0),
			DelayPhone:       getEnvAsInt("COLLECTIONS_DELAY_PHONE_DAYS", 0),
			DelayFinalNotice: getEnvAsInt("COLLECTIONS_DELAY_FINAL_NOTICE_DAYS", 0),
			DelayAgency:      getEnvAsInt("COLLECTIONS_DELAY_AGENCY_DAYS", 0),
			TickCron:         getEnv("COLLECTIONS_TICK_CRON", "0 6 * * *"),
			TickParallelism:  getEnvAsInt("COLLECTIONS_TICK_PARALLELISM", 8),
		},
		Messaging: MessagingConfig{
			EmailFrom:  getEnv("MESSAGING_EMAIL_FROM", "billing@example.com"),
			SMSFrom:    getEnv("MESSAGING_SMS_FROM", ""),
			WebhookURL: getEnv("MESSAGING_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Delays maps the channel-keyed overrides onto catalog offsets. Channels with
// no override keep their catalog offset as the threshold.
func (c CollectionsConfig) Delays() map[int]int {
	byChannel := map[catalog.Channel]int{
		catalog.ChannelStatement:   c.DelayStatement,
		catalog.ChannelSMS:         c.DelaySMS,
		catalog.ChannelEmail:       c.DelayEmail,
		catalog.ChannelPhone:       c.DelayPhone,
		catalog.ChannelFinalNotice: c.DelayFinalNotice,
		catalog.ChannelAgency:      c.DelayAgency,
	}
	delays := make(map[int]int)
	for _, step := range catalog.Steps() {
		if d := byChannel[step.Channel]; d > 0 {
			delays[step.Offset] = d
		}
	}
	return delays
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
