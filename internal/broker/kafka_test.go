package broker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingest/internal/config"
	"ingest/internal/logger"
	"ingest/pkg/errors"
	"ingest/pkg/models"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func newTestKafkaProducer(w messageWriter) *KafkaProducer {
	p := NewKafkaProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, logger.NopLogger())
	p.writer = w
	return p
}

func testRecord(id string) models.Record {
	return models.NewRecordBuilder().
		WithID(id).
		WithSource("arxiv").
		WithContentType("research_paper").
		WithPayload(map[string]string{"title": "x"}).
		WithTimestamp(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)).
		Build()
}

func TestKafkaProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := newTestKafkaProducer(w)

	err := p.Publish(context.Background(), "ingest.raw.research_paper", testRecord("rec-1"))
	require.NoError(t, err)

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "ingest.raw.research_paper", msg.Topic)
	assert.Equal(t, []byte("rec-1"), msg.Key)

	var header string
	for _, h := range msg.Headers {
		if h.Key == "X-Record-ID" {
			header = string(h.Value)
		}
	}
	assert.Equal(t, "rec-1", header)

	var decoded models.Record
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "rec-1", decoded.ID)
	assert.Equal(t, "arxiv", decoded.Source)
	assert.JSONEq(t, `{"title":"x"}`, string(decoded.Payload))
	assert.JSONEq(t, `{}`, string(decoded.Metadata))
}

func TestKafkaProducerPublishErrors(t *testing.T) {
	t.Run("write failure maps to publish error", func(t *testing.T) {
		p := newTestKafkaProducer(&fakeWriter{err: stderrors.New("leader not available")})

		err := p.Publish(context.Background(), "ingest.raw.news", testRecord("rec-1"))
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrPublish))
		assert.Equal(t, 502, errors.ToHTTPStatus(err))
	})

	t.Run("invalid payload maps to serialization error", func(t *testing.T) {
		w := &fakeWriter{}
		p := newTestKafkaProducer(w)

		rec := testRecord("rec-1")
		rec.Payload = json.RawMessage(`{not json`)

		err := p.Publish(context.Background(), "ingest.raw.news", rec)
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrSerialization))
		assert.Empty(t, w.messages)
	})

	t.Run("closed producer is unavailable", func(t *testing.T) {
		w := &fakeWriter{}
		p := newTestKafkaProducer(w)
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())
		assert.True(t, w.closed)

		err := p.Publish(context.Background(), "ingest.raw.news", testRecord("rec-1"))
		assert.True(t, errors.IsServiceUnavailable(err))
	})
}

func TestKafkaProducerPingWithoutBrokers(t *testing.T) {
	p := NewKafkaProducer(config.KafkaConfig{}, logger.NopLogger())
	assert.Error(t, p.Ping(context.Background()))
}

func TestKafkaProducerConnectUnreachable(t *testing.T) {
	p := NewKafkaProducer(config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}}, logger.NopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, p.Connect(ctx))
}
