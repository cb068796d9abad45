package broker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"ingest/internal/config"
	"ingest/internal/constants"
	"ingest/internal/logger"
	"ingest/pkg/errors"
	"ingest/pkg/logging"
	"ingest/pkg/metrics"
	"ingest/pkg/models"
	"ingest/pkg/tracing"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	cfg    config.KafkaConfig
	writer messageWriter
	logger logger.Logger
	closed atomic.Bool
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		AllowAutoTopicCreation: cfg.AllowAutoTopicCreation,
		Async:                  false,
	}
	return &KafkaProducer{cfg: cfg, writer: w, logger: log}
}

func (p *KafkaProducer) Name() string {
	return constants.BrokerTypeKafka
}

// Connect verifies that at least one configured broker accepts connections.
// kafka.Writer dials lazily, so this is the only point where an unreachable
// cluster surfaces before the first publish.
func (p *KafkaProducer) Connect(ctx context.Context) error {
	if err := p.Ping(ctx); err != nil {
		return err
	}
	p.logger.Infow("Connected to Kafka", "brokers", p.cfg.Brokers)
	return nil
}

func (p *KafkaProducer) Ping(ctx context.Context) error {
	if len(p.cfg.Brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	var lastErr error
	for _, addr := range p.cfg.Brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		conn.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("kafka: no reachable broker in %v: %w", p.cfg.Brokers, lastErr)
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, rec models.Record) error {
	if p.closed.Load() {
		return errors.ErrServiceUnavailable.WithMessage("message bus producer is closed")
	}

	body, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	headers := []kafka.Header{{Key: constants.HeaderRecordID, Value: []byte(rec.ID)}}
	headers = tracing.InjectTraceContext(ctx, headers)

	start := time.Now()
	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Key:     []byte(rec.ID),
			Value:   body,
			Headers: headers,
			Time:    time.Now(),
		},
	)
	metrics.ObserveBusPublishDuration(p.Name(), time.Since(start))

	if err != nil {
		metrics.IncBusPublish(p.Name(), "error")
		return errors.ErrPublish.WithCause(fmt.Errorf("failed to write kafka message to %s: %w", topic, err))
	}

	metrics.IncBusPublish(p.Name(), "success")
	metrics.ObserveBusMessageSize(p.Name(), len(body))
	return nil
}

func (p *KafkaProducer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}

type KafkaConsumer struct {
	cfg    config.KafkaConfig
	wg     sync.WaitGroup
	mu     sync.Mutex
	reader *kafka.Reader
	logger logger.Logger
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		cfg:    cfg,
		logger: log,
	}
}

// Consume reads records from topic until ctx is done. Records that fail to
// decode or that the handler rejects are logged and committed so they do not block the partition.
func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
	)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	c.mu.Lock()
	c.reader = reader
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logger.InfowCtx(ctx, "Started consuming", "topic", topic)

		for {
			m, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || err == io.EOF {
					c.logger.InfowCtx(ctx, "Stopped consuming",
						"topic", topic,
						"reason", "reader closed",
					)
					return
				}
				c.logger.ErrorwCtx(ctx, "Error fetching kafka message",
					"error", err,
					"topic", topic,
				)
				time.Sleep(time.Second)
				continue
			}
			metrics.IncBusMessagesRead(constants.BrokerTypeKafka, topic)

			rec, err := decodeRecord(m.Value)
			if err != nil {
				c.logger.ErrorwCtx(ctx, "Failed to decode record",
					"error", err,
					"topic", topic,
					"offset", m.Offset,
				)
				_ = reader.CommitMessages(ctx, m)
				continue
			}

			msgCtx := tracing.ExtractTraceContext(ctx, m.Headers)
			msgCtx = logging.WithRecordID(msgCtx, rec.ID)

			if err := handler(msgCtx, rec); err != nil {
				c.logger.ErrorwCtx(msgCtx, "Handler failed for record",
					"error", err,
					"topic", topic,
				)
			}
			if err := reader.CommitMessages(ctx, m); err != nil {
				c.logger.ErrorwCtx(msgCtx, "Failed to commit message",
					"error", err,
					"topic", topic,
				)
			}
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) Close() error {
	c.mu.Lock()
	reader := c.reader
	c.mu.Unlock()

	var err error
	if reader != nil {
		err = reader.Close()
	}
	c.wg.Wait()
	return err
}
