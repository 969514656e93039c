package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Environment string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	Store       string `mapstructure:"STORE"`
	DBDSN       string `mapstructure:"DB_DSN"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`

	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPFrom string `mapstructure:"SMTP_FROM"`

	RedisAddr          string   `mapstructure:"REDIS_ADDR"`
	RateLimitPerMinute int      `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	AllowedOrigins     []string `mapstructure:"ALLOWED_ORIGINS"`

	KafkaBrokers       []string      `mapstructure:"KAFKA_BROKERS"`
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`

	OTelEnabled  bool   `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	BookingMaxAttempts int `mapstructure:"BOOKING_MAX_ATTEMPTS"`
}

// Load reads .env (if present) and then the process environment.
// The bool reports whether .env was found.
func Load() (*Config, bool, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	loadedDotEnv := godotenv.Load(".env") == nil

	cfg, err := FromLookup(os.LookupEnv)
	if err != nil {
		return nil, loadedDotEnv, err
	}
	return cfg, loadedDotEnv, nil
}

// FromLookup builds a Config from any key lookup, defaults applied.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	r := reader{lookup: lookup}

	cfg := &Config{
		Environment:        r.str("ENV", "development"),
		LogLevel:           r.str("LOG_LEVEL", ""),
		Store:              strings.ToLower(r.str("STORE", StorePostgres)),
		DBDSN:              r.str("DB_DSN", ""),
		HTTPAddr:           r.str("HTTP_ADDR", ":8080"),
		TelegramToken:      r.str("TELEGRAM_TOKEN", ""),
		SMTPHost:           r.str("SMTP_HOST", ""),
		SMTPPort:           r.integer("SMTP_PORT", 1025),
		SMTPFrom:           r.str("SMTP_FROM", "demo-booking@localhost"),
		RedisAddr:          r.str("REDIS_ADDR", ""),
		RateLimitPerMinute: r.integer("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:     r.list("ALLOWED_ORIGINS"),
		KafkaBrokers:       r.list("KAFKA_BROKERS"),
		OutboxPollInterval: r.duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OTelEnabled:        r.boolean("OTEL_ENABLED", false),
		OTelEndpoint:       r.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		BookingMaxAttempts: r.integer("BOOKING_MAX_ATTEMPTS", 5),
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}

	// Проверяем обязательные поля
	switch cfg.Store {
	case StorePostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required but not set")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}
	if cfg.RateLimitPerMinute <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if cfg.BookingMaxAttempts <= 0 {
		return nil, fmt.Errorf("BOOKING_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return def
	}
	return v
}

func (r *reader) boolean(key string, def bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a boolean", key, raw))
		return def
	}
	return v
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a positive duration", key, raw))
		return def
	}
	return v
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
