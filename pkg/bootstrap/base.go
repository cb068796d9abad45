package bootstrap

import (
	"context"
	"fmt"

	"ingest/internal/broker"
	"ingest/internal/config"
	"ingest/internal/logger"
)

type Base struct {
	Config *config.Config
	Logger logger.Logger

	// Bus is the raw connection, used for readiness checks.
	Bus broker.Bus
	// Producer is what request handlers publish through. It is Bus, or Bus
	// behind a circuit breaker when one is enabled.
	Producer broker.Producer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitBroker connects to the configured message bus. A returned error means
// the service cannot run and should exit.
func (b *Base) InitBroker(ctx context.Context) error {
	bus, err := broker.NewBus(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create message bus client: %w", err)
	}

	b.Logger.InfowCtx(ctx, "Connecting to message bus",
		"type", b.Config.Broker.Type,
		"url", b.Config.Broker.URL,
		"max_attempts", b.Config.Broker.Connect.MaxAttempts,
	)
	if err := broker.Connect(ctx, bus, b.Config.Broker.Connect, b.Logger); err != nil {
		_ = bus.Close()
		return err
	}

	b.Bus = bus
	b.Producer = bus
	if b.Config.CircuitBreaker.Enabled {
		b.Producer = broker.NewBreakerProducer(bus, b.Config.CircuitBreaker, b.Logger)
	}
	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.InfowCtx(ctx, "Shutting down application...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	errs = append(errs, b.ShutdownBroker()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.InfowCtx(ctx, "Application exited successfully")
	return nil
}
