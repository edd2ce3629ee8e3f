package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Jobs         JobsConfig
	Rules        RulesConfig
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
	MigrationsDir  string
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds stub notification endpoints and the Redis channel
// escalation alerts are published on.
type NotificationConfig struct {
	EmailFrom         string
	WebhookURL        string
	EscalationChannel string
}

// JobsConfig controls the periodic batch jobs. A zero interval disables a job.
type JobsConfig struct {
	SLACheckIntervalSeconds   int
	ComplianceIntervalMinutes int
	RollupIntervalMinutes     int
	ImpactWindowMinutes       int
}

// RulesConfig points at an optional YAML override of the SLA schema and
// escalation matrix.
type RulesConfig struct {
	Path string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "itsm-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
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
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:         getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:        getEnv("NOTIFY_WEBHOOK_URL", ""),
			EscalationChannel: getEnv("NOTIFY_ESCALATION_CHANNEL", "itsm:escalations"),
		},
		Jobs: JobsConfig{
			SLACheckIntervalSeconds:   getEnvAsInt("JOBS_SLA_CHECK_INTERVAL_SECONDS", 300),
			ComplianceIntervalMinutes: getEnvAsInt("JOBS_COMPLIANCE_INTERVAL_MINUTES", 1440),
			RollupIntervalMinutes:     getEnvAsInt("JOBS_ROLLUP_INTERVAL_MINUTES", 1440),
			ImpactWindowMinutes:       getEnvAsInt("IMPACT_WINDOW_MINUTES", 60),
		},
		Rules: RulesConfig{
			Path: os.Getenv("ITSM_RULES_PATH"),
		},
	}

	if cfg.Jobs.ImpactWindowMinutes <= 0 {
		return nil, fmt.Errorf("invalid IMPACT_WINDOW_MINUTES: %d", cfg.Jobs.ImpactWindowMinutes)
	}

	return cfg, nil
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

// interval converts a job setting to a duration; zero or negative disables the job.
func interval(value int, unit time.Duration) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * unit
}

// SLACheckInterval returns how often open work items are swept.
func (j JobsConfig) SLACheckInterval() time.Duration {
	return interval(j.SLACheckIntervalSeconds, time.Second)
}

// ComplianceInterval returns how often certificates are checked.
func (j JobsConfig) ComplianceInterval() time.Duration {
	return interval(j.ComplianceIntervalMinutes, time.Minute)
}

// RollupInterval returns how often analytics metrics are rolled up.
func (j JobsConfig) RollupInterval() time.Duration {
	return interval(j.RollupIntervalMinutes, time.Minute)
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
