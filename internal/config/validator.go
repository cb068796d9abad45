package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

const defaultKafkaPort = "9092"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config field '%s': %s", e.Field, e.Message)
}

// Warnings are non-fatal configuration problems that were resolved by falling back to defaults.
type Warnings []*ValidationError

// Normalize repairs out-of-range values in cfg and derives the broker type and
// addresses from the bus URL. It never fails; every repair is reported.
func Normalize(cfg *Config) Warnings {
	var warnings Warnings

	warnings = append(warnings, normalizeEnvironment(cfg)...)
	warnings = append(warnings, normalizeServer(&cfg.Server)...)
	warnings = append(warnings, normalizeBroker(&cfg.Broker)...)
	warnings = append(warnings, normalizeLogging(&cfg.Logging)...)
	warnings = append(warnings, normalizeIngestion(&cfg.Ingestion)...)
	warnings = append(warnings, normalizeCircuitBreaker(&cfg.CircuitBreaker)...)
	warnings = append(warnings, normalizeRateLimit(&cfg.RateLimit)...)

	return warnings
}

func fallback(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func normalizeEnvironment(cfg *Config) Warnings {
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	switch cfg.Environment {
	case "development", "staging", "production", "test":
		return nil
	}
	w := fallback("environment", "unknown environment %q, using default %s", cfg.Environment, DefaultEnvironment)
	cfg.Environment = DefaultEnvironment
	return Warnings{w}
}

func normalizeServer(cfg *ServerConfig) Warnings {
	var warnings Warnings

	if cfg.Port < 1 || cfg.Port > 65535 {
		warnings = append(warnings, fallback("server.port", "port must be between 1 and 65535, got %d, using default %d", cfg.Port, DefaultPort))
		cfg.Port = DefaultPort
	}

	warnings = appendIf(warnings, positiveDuration("server.read_timeout", &cfg.ReadTimeout, 15*time.Second))
	warnings = appendIf(warnings, positiveDuration("server.write_timeout", &cfg.WriteTimeout, 30*time.Second))
	warnings = appendIf(warnings, positiveDuration("server.shutdown_timeout", &cfg.ShutdownTimeout, 10*time.Second))

	return warnings
}

func normalizeBroker(cfg *BrokerConfig) Warnings {
	var warnings Warnings

	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Type != "" && cfg.Type != "kafka" && cfg.Type != "nats" {
		warnings = append(warnings, fallback("broker.type", "unknown broker type: %s (supported: kafka, nats), deriving from url", cfg.Type))
		cfg.Type = ""
	}

	if err := resolveBusURL(cfg); err != nil {
		warnings = append(warnings, fallback("broker.url", "%v, using default %s", err, DefaultBusURL))
		cfg.URL = DefaultBusURL
		cfg.Type = ""
		_ = resolveBusURL(cfg)
	}

	warnings = appendIf(warnings, positiveDuration("broker.kafka.write_timeout", &cfg.Kafka.WriteTimeout, 10*time.Second))
	warnings = appendIf(warnings, positiveDuration("broker.nats.timeout", &cfg.NATS.Timeout, 5*time.Second))
	warnings = appendIf(warnings, positiveDuration("broker.nats.flush_timeout", &cfg.NATS.FlushTimeout, 5*time.Second))
	if cfg.Kafka.RequiredAcks < -1 || cfg.Kafka.RequiredAcks > 1 {
		warnings = append(warnings, fallback("broker.kafka.required_acks", "required_acks must be -1, 0 or 1, got %d, using default 1", cfg.Kafka.RequiredAcks))
		cfg.Kafka.RequiredAcks = 1
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "ingestion-service"
	}

	if cfg.Connect.MaxAttempts < 1 {
		warnings = append(warnings, fallback("broker.connect.max_attempts", "max_attempts must be at least 1, got %d, using default 3", cfg.Connect.MaxAttempts))
		cfg.Connect.MaxAttempts = 3
	}
	warnings = appendIf(warnings, positiveDuration("broker.connect.initial_interval", &cfg.Connect.InitialInterval, 500*time.Millisecond))
	warnings = appendIf(warnings, positiveDuration("broker.connect.max_interval", &cfg.Connect.MaxInterval, 5*time.Second))
	warnings = appendIf(warnings, positiveDuration("broker.connect.timeout", &cfg.Connect.Timeout, 5*time.Second))
	if cfg.Connect.MaxInterval < cfg.Connect.InitialInterval {
		warnings = append(warnings, fallback("broker.connect.max_interval", "max_interval must be greater than or equal to initial_interval, using %s", cfg.Connect.InitialInterval))
		cfg.Connect.MaxInterval = cfg.Connect.InitialInterval
	}
	if cfg.Connect.Multiplier < 1 {
		warnings = append(warnings, fallback("broker.connect.multiplier", "multiplier must be at least 1, got %v, using default 2", cfg.Connect.Multiplier))
		cfg.Connect.Multiplier = 2
	}

	return warnings
}

// resolveBusURL derives the broker type from the URL scheme. nats:// and tls://
// select NATS; kafka:// or a bare host list selects Kafka.
func resolveBusURL(cfg *BrokerConfig) error {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return fmt.Errorf("bus url is empty")
	}

	scheme, rest := "", url
	if i := strings.Index(url, "://"); i >= 0 {
		scheme, rest = strings.ToLower(url[:i]), url[i+3:]
	}

	switch scheme {
	case "nats", "tls":
		cfg.Type = "nats"
	case "kafka":
		cfg.Type = "kafka"
	case "":
		if cfg.Type == "" {
			cfg.Type = "kafka"
		}
	default:
		return fmt.Errorf("unsupported bus url scheme %q", scheme)
	}

	cfg.URL = url
	if cfg.Type == "nats" {
		cfg.Kafka.Brokers = nil
		return nil
	}

	brokers, err := parseKafkaBrokers(rest)
	if err != nil {
		return err
	}
	cfg.Kafka.Brokers = brokers
	return nil
}

func parseKafkaBrokers(hosts string) ([]string, error) {
	var brokers []string
	for _, h := range strings.Split(strings.TrimSuffix(hosts, "/"), ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(h); err != nil {
			h = net.JoinHostPort(h, defaultKafkaPort)
		}
		brokers = append(brokers, h)
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("bus url has no kafka brokers")
	}
	return brokers, nil
}

func normalizeLogging(cfg *LoggingConfig) Warnings {
	var warnings Warnings

	cfg.Level = strings.ToLower(cfg.Level)
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, fallback("logging.level", "invalid level %q, using default info", cfg.Level))
		cfg.Level = "info"
	}

	cfg.Format = strings.ToLower(cfg.Format)
	if cfg.Format != "json" && cfg.Format != "console" {
		warnings = append(warnings, fallback("logging.format", "invalid format %q, using default json", cfg.Format))
		cfg.Format = "json"
	}

	return warnings
}

func normalizeIngestion(cfg *IngestionConfig) Warnings {
	var warnings Warnings

	if cfg.BatchWorkers < 1 {
		warnings = append(warnings, fallback("ingestion.batch_workers", "batch_workers must be at least 1, got %d, using 1", cfg.BatchWorkers))
		cfg.BatchWorkers = 1
	}
	if cfg.MaxBodyBytes <= 0 {
		warnings = append(warnings, fallback("ingestion.max_body_bytes", "max_body_bytes must be positive, got %d, using default %d", cfg.MaxBodyBytes, int64(10<<20)))
		cfg.MaxBodyBytes = 10 << 20
	}

	return warnings
}

func normalizeCircuitBreaker(cfg *CircuitBreakerConfig) Warnings {
	var warnings Warnings

	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		warnings = append(warnings, fallback("circuit_breaker.failure_ratio", "failure_ratio must be in (0, 1], got %v, using default 0.5", cfg.FailureRatio))
		cfg.FailureRatio = 0.5
	}
	warnings = appendIf(warnings, positiveDuration("circuit_breaker.timeout", &cfg.Timeout, 30*time.Second))

	return warnings
}

func normalizeRateLimit(cfg *RateLimitConfig) Warnings {
	var warnings Warnings

	if cfg.RPS <= 0 {
		warnings = append(warnings, fallback("rate_limit.rps", "rps must be positive, got %v, using default 100", cfg.RPS))
		cfg.RPS = 100
	}
	if cfg.Burst < 1 {
		warnings = append(warnings, fallback("rate_limit.burst", "burst must be at least 1, got %d, using default 200", cfg.Burst))
		cfg.Burst = 200
	}
	warnings = appendIf(warnings, positiveDuration("rate_limit.cleanup_interval", &cfg.CleanupInterval, 5*time.Minute))
	warnings = appendIf(warnings, positiveDuration("rate_limit.max_age", &cfg.MaxAge, 10*time.Minute))

	return warnings
}

func positiveDuration(field string, d *time.Duration, def time.Duration) *ValidationError {
	if *d > 0 {
		return nil
	}
	w := fallback(field, "must be positive, got %s, using default %s", *d, def)
	*d = def
	return w
}

func appendIf(warnings Warnings, w *ValidationError) Warnings {
	if w == nil {
		return warnings
	}
	return append(warnings, w)
}
