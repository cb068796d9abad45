package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	DefaultPort        = 3000
	DefaultBusURL      = "kafka://localhost:9092"
	DefaultEnvironment = "development"
)

type setting struct {
	key      string
	def      interface{}
	envs     []string
	required bool
}

// settings lists every key with its default. Keys marked required warn when
// neither the config file nor the environment supplies them.
var settings = []setting{
	{key: "environment", def: DefaultEnvironment, envs: []string{"ENVIRONMENT"}, required: true},

	{key: "server.port", def: DefaultPort, envs: []string{"PORT", "SERVER_PORT"}, required: true},
	{key: "server.read_timeout", def: 15 * time.Second},
	{key: "server.write_timeout", def: 30 * time.Second},
	{key: "server.shutdown_timeout", def: 10 * time.Second},

	{key: "broker.url", def: DefaultBusURL, envs: []string{"BUS_URL", "BROKER_URL", "NATS_URL"}, required: true},
	{key: "broker.type", def: ""},
	{key: "broker.kafka.group_id", def: "ingestion-service"},
	{key: "broker.kafka.batch_timeout", def: 10 * time.Millisecond},
	{key: "broker.kafka.write_timeout", def: 10 * time.Second},
	{key: "broker.kafka.required_acks", def: 1},
	{key: "broker.kafka.allow_auto_topic_creation", def: true},
	{key: "broker.nats.name", def: "ingestion-service"},
	{key: "broker.nats.timeout", def: 5 * time.Second},
	{key: "broker.nats.flush_timeout", def: 5 * time.Second},
	{key: "broker.nats.max_reconnects", def: 60},
	{key: "broker.connect.max_attempts", def: 3},
	{key: "broker.connect.initial_interval", def: 500 * time.Millisecond},
	{key: "broker.connect.max_interval", def: 5 * time.Second},
	{key: "broker.connect.multiplier", def: 2.0},
	{key: "broker.connect.timeout", def: 5 * time.Second},

	{key: "logging.level", def: "info"},
	{key: "logging.format", def: "json"},

	{key: "ingestion.batch_workers", def: 1},
	{key: "ingestion.max_body_bytes", def: int64(10 << 20)},

	{key: "circuit_breaker.enabled", def: true},
	{key: "circuit_breaker.max_requests", def: uint32(3)},
	{key: "circuit_breaker.interval", def: 60 * time.Second},
	{key: "circuit_breaker.timeout", def: 30 * time.Second},
	{key: "circuit_breaker.failure_ratio", def: 0.5},
	{key: "circuit_breaker.min_requests", def: uint32(5)},

	{key: "rate_limit.enabled", def: false},
	{key: "rate_limit.rps", def: 100.0},
	{key: "rate_limit.burst", def: 200},
	{key: "rate_limit.cleanup_interval", def: 5 * time.Minute},
	{key: "rate_limit.max_age", def: 10 * time.Minute},

	{key: "tracing.enabled", def: false},
	{key: "tracing.service_name", def: "ingestion-service"},
	{key: "tracing.otlp.endpoint", def: "localhost:4317", envs: []string{"TRACING_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"}},
	{key: "tracing.otlp.insecure", def: true},
	{key: "tracing.sampler.type", def: "parentbased_always_on"},
	{key: "tracing.sampler.param", def: 1.0},
}

// Load reads configuration from an optional YAML file and the environment.
// Missing or malformed values never fail the load: they are replaced by their
// defaults and reported in the returned warnings. The only error is a config
// file that was named but cannot be read.
func Load(configFile string) (*Config, Warnings, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		if len(s.envs) > 0 {
			_ = v.BindEnv(append([]string{s.key}, s.envs...)...)
		}
	}

	if configFile != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var warnings Warnings
	for _, s := range settings {
		if s.required && !provided(v, s) {
			warnings = append(warnings, &ValidationError{
				Field:   s.key,
				Message: fmt.Sprintf("%s not set, using default %v", envName(s), s.def),
			})
		}
		if w := coerce(v, s); w != nil {
			warnings = append(warnings, w)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Every key has been coerced to its default's type above, so this
		// only happens on a structurally broken file (e.g. a scalar where a map is expected).
		return nil, warnings, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	warnings = append(warnings, Normalize(&cfg)...)

	return &cfg, warnings, nil
}

func provided(v *viper.Viper, s setting) bool {
	if v.InConfig(s.key) {
		return true
	}
	for _, env := range s.envs {
		if val, ok := os.LookupEnv(env); ok && val != "" {
			return true
		}
	}
	return false
}

func envName(s setting) string {
	if len(s.envs) > 0 {
		return s.envs[0]
	}
	return s.key
}

// coerce converts the effective value of s to the type of its default,
// resetting it to the default when conversion fails.
func coerce(v *viper.Viper, s setting) *ValidationError {
	raw := v.Get(s.key)

	var (
		value interface{}
		err   error
	)
	switch s.def.(type) {
	case string:
		value, err = cast.ToStringE(raw)
	case int:
		value, err = cast.ToIntE(raw)
	case int64:
		value, err = cast.ToInt64E(raw)
	case uint32:
		value, err = cast.ToUint32E(raw)
	case float64:
		value, err = cast.ToFloat64E(raw)
	case bool:
		value, err = cast.ToBoolE(raw)
	case time.Duration:
		value, err = cast.ToDurationE(raw)
	default:
		return nil
	}

	if err != nil {
		v.Set(s.key, s.def)
		return &ValidationError{
			Field:   s.key,
			Message: fmt.Sprintf("invalid value %q for %s, using default %v", fmt.Sprint(raw), envName(s), s.def),
		}
	}

	v.Set(s.key, value)
	return nil
}
