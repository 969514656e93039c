package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

func Test_FromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(envOf(map[string]string{"DB_DSN": "postgres://localhost/demo"}))

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 1025, cfg.SMTPPort)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 5, cfg.BookingMaxAttempts)
	assert.False(t, cfg.OTelEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
}

func Test_FromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(envOf(map[string]string{
		"ENV":                   "production",
		"STORE":                 "Memory",
		"KAFKA_BROKERS":         "kafka-1:9092, kafka-2:9092,",
		"ALLOWED_ORIGINS":       "https://app.example.com",
		"OUTBOX_POLL_INTERVAL":  "500ms",
		"OTEL_ENABLED":          "true",
		"RATE_LIMIT_PER_MINUTE": "10",
	}))

	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, 10, cfg.RateLimitPerMinute)
}

func Test_FromLookup_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing dsn", env: map[string]string{}, want: "DB_DSN is required"},
		{name: "unknown store", env: map[string]string{"STORE": "sqlite"}, want: "STORE must be"},
		{name: "bad int", env: map[string]string{"STORE": "memory", "SMTP_PORT": "twenty"}, want: "SMTP_PORT"},
		{name: "bad duration", env: map[string]string{"STORE": "memory", "OUTBOX_POLL_INTERVAL": "soon"}, want: "OUTBOX_POLL_INTERVAL"},
		{name: "bad bool", env: map[string]string{"STORE": "memory", "OTEL_ENABLED": "maybe"}, want: "OTEL_ENABLED"},
		{name: "zero attempts", env: map[string]string{"STORE": "memory", "BOOKING_MAX_ATTEMPTS": "0"}, want: "BOOKING_MAX_ATTEMPTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLookup(envOf(tt.env))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
