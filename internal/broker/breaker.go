package broker

import (
	"context"
	stderrors "errors"

	"github.com/sony/gobreaker"

	"ingest/internal/config"
	"ingest/internal/logger"
	"ingest/pkg/circuitbreaker"
	"ingest/pkg/errors"
	"ingest/pkg/models"
)

// BreakerProducer fails publishes fast with ErrServiceUnavailable while the
// wrapped bus keeps failing. Encoding failures do not count against the bus.
type BreakerProducer struct {
	Bus
	breaker *circuitbreaker.Wrapper
	logger  logger.Logger
}

func NewBreakerProducer(bus Bus, cfg config.CircuitBreakerConfig, log logger.Logger) *BreakerProducer {
	cbCfg := circuitbreaker.FromConfig(bus.Name()+"-publisher", cfg)
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || stderrors.Is(err, errors.ErrSerialization) || stderrors.Is(err, context.Canceled)
	}
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warnw("Circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	}

	return &BreakerProducer{
		Bus:     bus,
		breaker: circuitbreaker.NewWrapper(cbCfg),
		logger:  log,
	}
}

func (p *BreakerProducer) Publish(ctx context.Context, topic string, rec models.Record) error {
	err := p.breaker.Execute(ctx, func() error {
		return p.Bus.Publish(ctx, topic, rec)
	})
	if stderrors.Is(err, circuitbreaker.ErrOpen) {
		return errors.ErrServiceUnavailable.WithMessage("message bus temporarily unavailable").WithCause(err)
	}
	return err
}

func (p *BreakerProducer) Breaker() *circuitbreaker.Wrapper {
	return p.breaker
}
