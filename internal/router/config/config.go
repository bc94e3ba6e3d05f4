package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	PostgresDriver = "postgres"
	MemoryDriver   = "memory"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	PostgresConn  string `mapstructure:"POSTGRES_CONN"`
	PostgresUser  string `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass  string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost  string `mapstructure:"POSTGRES_HOST"`
	PostgresPort  string `mapstructure:"POSTGRES_PORT"`
	PostgresDB    string `mapstructure:"POSTGRES_DATABASE"`
	MigrationURL  string `mapstructure:"MIGRATION_URL"`
	StoreDriver   string `mapstructure:"STORE_DRIVER"`

	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	JWTTTL         time.Duration `mapstructure:"JWT_TTL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	RabbitMQURL        string        `mapstructure:"RABBITMQ_URL"`
	EventsExchange     string        `mapstructure:"EVENTS_EXCHANGE"`
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`

	RedisURL         string        `mapstructure:"REDIS_URL"`
	LastSeenDebounce time.Duration `mapstructure:"LAST_SEEN_DEBOUNCE"`

	SweepSchedule    string        `mapstructure:"SWEEP_SCHEDULE"`
	ReminderSchedule string        `mapstructure:"REMINDER_SCHEDULE"`
	ReminderWindow   time.Duration `mapstructure:"REMINDER_WINDOW"`

	AttachmentDir      string `mapstructure:"ATTACHMENT_DIR"`
	AttachmentMaxBytes int64  `mapstructure:"ATTACHMENT_MAX_BYTES"`

	RateLimitRPS       float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int     `mapstructure:"RATE_LIMIT_BURST"`
	CORSAllowedOrigins string  `mapstructure:"CORS_ALLOWED_ORIGINS"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"SERVER_ADDRESS":       "0.0.0.0:8080",
	"MIGRATION_URL":        "file://migrations",
	"STORE_DRIVER":         PostgresDriver,
	"JWT_TTL":              "24h",
	"REQUEST_TIMEOUT":      "5s",
	"EVENTS_EXCHANGE":      "freelance.events",
	"OUTBOX_POLL_INTERVAL": "2s",
	"LAST_SEEN_DEBOUNCE":   "5m",
	"SWEEP_SCHEDULE":       "@every 1m",
	"REMINDER_SCHEDULE":    "@hourly",
	"REMINDER_WINDOW":      "24h",
	"ATTACHMENT_DIR":       "data/attachments",
	"ATTACHMENT_MAX_BYTES": 10 << 20,
	"RATE_LIMIT_RPS":       20.0,
	"RATE_LIMIT_BURST":     40,
	"CORS_ALLOWED_ORIGINS": "*",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "json",
}

// LoadConfig загружает конфигурацию из файла app.env и переменных окружения
func LoadConfig(path string) (cfg Config, err error) {
	// .env нужен только для локального запуска
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// без зарегистрированного ключа AutomaticEnv не попадёт в Unmarshal
	for _, key := range []string{
		"POSTGRES_CONN", "POSTGRES_USERNAME", "POSTGRES_PASSWORD", "POSTGRES_HOST",
		"POSTGRES_PORT", "POSTGRES_DATABASE", "JWT_SECRET", "RABBITMQ_URL", "REDIS_URL",
	} {
		v.SetDefault(key, "")
	}
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate проверяет обязательные параметры
func (c Config) Validate() error {
	switch c.StoreDriver {
	case PostgresDriver:
		if c.PostgresUser == "" || c.PostgresPass == "" || c.PostgresHost == "" || c.PostgresPort == "" || c.PostgresDB == "" {
			return fmt.Errorf("one or more database connection environment variables are missing")
		}
	case MemoryDriver:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	return nil
}

// DSN возвращает строку подключения к базе данных.
func (c Config) DSN() string {
	if c.PostgresConn != "" {
		return c.PostgresConn
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

// AllowedOrigins разбирает CORS_ALLOWED_ORIGINS через запятую.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
