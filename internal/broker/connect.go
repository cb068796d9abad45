package broker

import (
	"context"
	"time"

	"ingest/internal/config"
	"ingest/internal/logger"
	"ingest/pkg/errors"
	"ingest/pkg/metrics"
	"ingest/pkg/retry"
)

// Connect establishes the bus connection with bounded retries. The returned
// error wraps ErrConnection once every attempt has failed.
func Connect(ctx context.Context, bus Bus, cfg config.ConnectConfig, log logger.Logger) error {
	policy := retry.Policy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Multiplier:      cfg.Multiplier,
	}

	err := retry.RetryWithCallback(ctx, policy,
		func(attempt int) error {
			attemptCtx := ctx
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}

			if err := bus.Connect(attemptCtx); err != nil {
				metrics.IncBusConnectAttempt(bus.Name(), "error")
				return err
			}
			metrics.IncBusConnectAttempt(bus.Name(), "success")
			return nil
		},
		func(attempt int, err error, next time.Duration) {
			log.Warnw("Message bus connection failed, retrying",
				"bus", bus.Name(),
				"attempt", attempt,
				"max_attempts", policy.MaxAttempts,
				"next_retry_in", next,
				"error", err,
			)
		},
	)
	if err != nil {
		return errors.ErrConnection.WithCause(err)
	}
	return nil
}
