package broker

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ingest/internal/broker/brokertest"
	"ingest/internal/config"
	"ingest/internal/logger"
	"ingest/pkg/errors"
)

func connectConfig(attempts int) config.ConnectConfig {
	return config.ConnectConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
		Timeout:         time.Second,
	}
}

func TestConnect(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		bus := brokertest.NewMockBus()
		bus.On("Connect", mock.Anything).Return(stderrors.New("refused")).Twice()
		bus.On("Connect", mock.Anything).Return(nil).Once()

		err := Connect(context.Background(), bus, connectConfig(3), logger.NopLogger())
		assert.NoError(t, err)
		bus.AssertNumberOfCalls(t, "Connect", 3)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		bus := brokertest.NewMockBus()
		bus.On("Connect", mock.Anything).Return(stderrors.New("refused"))

		err := Connect(context.Background(), bus, connectConfig(3), logger.NopLogger())
		assert.True(t, stderrors.Is(err, errors.ErrConnection))
		bus.AssertNumberOfCalls(t, "Connect", 3)
	})

	t.Run("single attempt", func(t *testing.T) {
		bus := brokertest.NewMockBus()
		bus.On("Connect", mock.Anything).Return(stderrors.New("refused"))

		err := Connect(context.Background(), bus, connectConfig(1), logger.NopLogger())
		assert.Error(t, err)
		bus.AssertNumberOfCalls(t, "Connect", 1)
	})

	t.Run("attempt gets a deadline", func(t *testing.T) {
		bus := brokertest.NewMockBus()
		bus.On("Connect", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		})).Return(nil).Once()

		assert.NoError(t, Connect(context.Background(), bus, connectConfig(1), logger.NopLogger()))
	})
}

func TestConnectUnreachableKafka(t *testing.T) {
	bus := NewKafkaProducer(config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}}, logger.NopLogger())

	err := Connect(context.Background(), bus, connectConfig(2), logger.NopLogger())
	assert.True(t, stderrors.Is(err, errors.ErrConnection))
}
