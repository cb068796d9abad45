package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "SERVER_PORT", "BUS_URL", "BROKER_URL", "NATS_URL", "ENVIRONMENT"} {
		t.Setenv(key, "")
	}
}

func warningFields(w Warnings) []string {
	fields := make([]string, 0, len(w))
	for _, v := range w {
		fields = append(fields, v.Field)
	}
	return fields
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, warnings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultEnvironment, cfg.Environment)
	assert.Equal(t, DefaultBusURL, cfg.Broker.URL)
	assert.Equal(t, "kafka", cfg.Broker.Type)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Broker.Connect.MaxAttempts)
	assert.Equal(t, 1, cfg.Ingestion.BatchWorkers)
	assert.Equal(t, int64(10<<20), cfg.Ingestion.MaxBodyBytes)
	assert.True(t, cfg.CircuitBreaker.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.ElementsMatch(t, []string{"environment", "server.port", "broker.url"}, warningFields(warnings))
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("BUS_URL", "nats://nats.internal:4222")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("INGESTION_BATCH_WORKERS", "8")
	t.Setenv("CIRCUIT_BREAKER_ENABLED", "false")

	cfg, warnings, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "nats", cfg.Broker.Type)
	assert.Equal(t, "nats://nats.internal:4222", cfg.Broker.URL)
	assert.Nil(t, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, 8, cfg.Ingestion.BatchWorkers)
	assert.False(t, cfg.CircuitBreaker.Enabled)
}

func TestLoadBusURLFromNATSURL(t *testing.T) {
	t.Run("NATS_URL alone selects nats", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NATS_URL", "nats://nats:4222")

		cfg, warnings, err := Load("")
		require.NoError(t, err)
		assert.NotContains(t, warningFields(warnings), "broker.url")
		assert.Equal(t, "nats", cfg.Broker.Type)
		assert.Equal(t, "nats://nats:4222", cfg.Broker.URL)
	})

	t.Run("BUS_URL wins over NATS_URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BUS_URL", "kafka://kafka:9092")
		t.Setenv("NATS_URL", "nats://nats:4222")

		cfg, _, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "kafka", cfg.Broker.Type)
		assert.Equal(t, []string{"kafka:9092"}, cfg.Broker.Kafka.Brokers)
	})
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		field  string
		assert func(t *testing.T, cfg *Config)
	}{
		{
			name:  "non numeric port",
			env:   map[string]string{"PORT": "eighty"},
			field: "server.port",
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultPort, cfg.Server.Port)
			},
		},
		{
			name:  "port out of range",
			env:   map[string]string{"PORT": "70000"},
			field: "server.port",
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultPort, cfg.Server.Port)
			},
		},
		{
			name:  "unsupported bus scheme",
			env:   map[string]string{"BUS_URL": "amqp://rabbit:5672"},
			field: "broker.url",
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultBusURL, cfg.Broker.URL)
				assert.Equal(t, "kafka", cfg.Broker.Type)
			},
		},
		{
			name:  "unknown environment",
			env:   map[string]string{"ENVIRONMENT": "qa"},
			field: "environment",
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultEnvironment, cfg.Environment)
			},
		},
		{
			name:  "bad duration",
			env:   map[string]string{"SERVER_SHUTDOWN_TIMEOUT": "soon"},
			field: "server.shutdown_timeout",
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
			},
		},
		{
			name:  "bad bool",
			env:   map[string]string{"RATE_LIMIT_ENABLED": "perhaps"},
			field: "rate_limit.enabled",
			assert: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.RateLimit.Enabled)
			},
		},
		{
			name:  "zero batch workers",
			env:   map[string]string{"INGESTION_BATCH_WORKERS": "0"},
			field: "ingestion.batch_workers",
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 1, cfg.Ingestion.BatchWorkers)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, warnings, err := Load("")
			require.NoError(t, err)
			assert.Contains(t, warningFields(warnings), tt.field)
			tt.assert(t, cfg)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
environment: staging
server:
  port: 9000
broker:
  url: kafka://k1:9092,k2
  kafka:
    required_acks: -1
ingestion:
  batch_workers: 4
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, warnings, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, -1, cfg.Broker.Kafka.RequiredAcks)
	assert.Equal(t, 4, cfg.Ingestion.BatchWorkers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("PORT", "9100")
		cfg, _, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9100, cfg.Server.Port)
	})
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)

	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
