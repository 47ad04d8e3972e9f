package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/clube-quinze/club-api/internal/scheduling"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Kafka        KafkaConfig
	Scheduling   SchedulingConfig
	RateLimit    RateLimitConfig
	Workers      WorkerConfig
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
	JWTSecret               string
	AccessTokenTTLMinutes   int
	PasswordResetTTLMinutes int
	BcryptCost              int
}

// NotificationConfig holds push and email delivery settings.
type NotificationConfig struct {
	PushEndpoint    string
	PushAccessToken string
	PushTimeoutSec  int
	SMTPHost        string
	SMTPPort        string
	EmailFrom       string
}

// EmailEnabled reports whether an SMTP relay is configured.
func (n NotificationConfig) EmailEnabled() bool {
	return n.SMTPHost != ""
}

// KafkaConfig configures the appointment event stream.
type KafkaConfig struct {
	Brokers string
	Topic   string
}

// SchedulingConfig holds the club's bookable day.
type SchedulingConfig struct {
	Timezone        string
	Opening         string
	Closing         string
	SlotMinutes     int
	DefaultTime     string
	RecurringMonths int
}

// RateLimitConfig bounds booking requests per caller.
type RateLimitConfig struct {
	Enabled       bool
	Requests      int
	WindowSeconds int
	FailOpen      bool
}

// Window returns the limiter window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// WorkerConfig sizes background processing.
type WorkerConfig struct {
	EventQueueSize        int
	EventWorkers          int
	ReminderIntervalSec   int
	ReminderLedgerTTLHour int
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
			Name:                  getEnv("APP_NAME", "club-api"),
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
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			PushEndpoint:    getEnv("NOTIFY_PUSH_ENDPOINT", "https://exp.host/--/api/v2/push/send"),
			PushAccessToken: os.Getenv("NOTIFY_PUSH_ACCESS_TOKEN"),
			PushTimeoutSec:  getEnvAsInt("NOTIFY_PUSH_TIMEOUT_SECONDS", 10),
			SMTPHost:        os.Getenv("NOTIFY_SMTP_HOST"),
			SMTPPort:        getEnv("NOTIFY_SMTP_PORT", "25"),
			EmailFrom:       getEnv("NOTIFY_EMAIL_FROM", "noreply@clubequinze.com.br"),
		},
		Kafka: KafkaConfig{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "club.appointments"),
		},
		Scheduling: SchedulingConfig{
			Timezone:        getEnv("SCHEDULE_TIMEZONE", "America/Sao_Paulo"),
			Opening:         getEnv("SCHEDULE_OPENING", "09:00"),
			Closing:         getEnv("SCHEDULE_CLOSING", "21:00"),
			SlotMinutes:     getEnvAsInt("SCHEDULE_SLOT_MINUTES", 30),
			DefaultTime:     getEnv("SCHEDULE_DEFAULT_TIME", "10:00"),
			RecurringMonths: getEnvAsInt("SCHEDULE_RECURRING_MONTHS", 3),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 30),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			FailOpen:      getEnvAsBool("RATE_LIMIT_FAIL_OPEN", true),
		},
		Workers: WorkerConfig{
			EventQueueSize:        getEnvAsInt("EVENT_QUEUE_SIZE", 256),
			EventWorkers:          getEnvAsInt("EVENT_WORKERS", 4),
			ReminderIntervalSec:   getEnvAsInt("REMINDER_INTERVAL_SECONDS", 300),
			ReminderLedgerTTLHour: getEnvAsInt("REMINDER_LEDGER_TTL_HOURS", 48),
		},
	}

	if _, err := cfg.Scheduling.Settings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Settings resolves the scheduling section into validated settings.
func (s SchedulingConfig) Settings() (scheduling.Settings, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return scheduling.Settings{}, fmt.Errorf("invalid SCHEDULE_TIMEZONE: %w", err)
	}
	opening, err := scheduling.ParseTimeOfDay(s.Opening)
	if err != nil {
		return scheduling.Settings{}, fmt.Errorf("invalid SCHEDULE_OPENING: %w", err)
	}
	closing, err := scheduling.ParseTimeOfDay(s.Closing)
	if err != nil {
		return scheduling.Settings{}, fmt.Errorf("invalid SCHEDULE_CLOSING: %w", err)
	}
	defaultTime, err := scheduling.ParseTimeOfDay(s.DefaultTime)
	if err != nil {
		return scheduling.Settings{}, fmt.Errorf("invalid SCHEDULE_DEFAULT_TIME: %w", err)
	}
	settings := scheduling.Settings{
		Opening:         opening,
		Closing:         closing,
		SlotDuration:    time.Duration(s.SlotMinutes) * time.Minute,
		Location:        loc,
		DefaultTime:     defaultTime,
		RecurringMonths: s.RecurringMonths,
	}
	if err := settings.Validate(); err != nil {
		return scheduling.Settings{}, fmt.Errorf("invalid scheduling config: %w", err)
	}
	return settings, nil
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
