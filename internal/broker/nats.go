package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"ingest/internal/config"
	"ingest/internal/constants"
	"ingest/internal/logger"
	"ingest/pkg/errors"
	"ingest/pkg/logging"
	"ingest/pkg/metrics"
	"ingest/pkg/models"
	"ingest/pkg/tracing"
)

type NATSProducer struct {
	url    string
	cfg    config.NATSConfig
	logger logger.Logger

	mu   sync.RWMutex
	conn *nats.Conn
}

func NewNATSProducer(url string, cfg config.NATSConfig, log logger.Logger) *NATSProducer {
	return &NATSProducer{url: url, cfg: cfg, logger: log}
}

func (p *NATSProducer) Name() string {
	return constants.BrokerTypeNATS
}

func (p *NATSProducer) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil && !p.conn.IsClosed() {
		return nil
	}

	conn, err := dialNATS(p.url, p.cfg, p.logger)
	if err != nil {
		return err
	}
	p.conn = conn
	p.logger.Infow("Connected to NATS", "url", conn.ConnectedUrlRedacted())
	return nil
}

func dialNATS(url string, cfg config.NATSConfig, log logger.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warnw("Disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Infow("Reconnected to NATS", "url", c.ConnectedUrlRedacted())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Infow("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: failed to connect to %s: %w", url, err)
	}
	return conn, nil
}

func (p *NATSProducer) connection() *nats.Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn
}

func (p *NATSProducer) Ping(ctx context.Context) error {
	conn := p.connection()
	if conn == nil || !conn.IsConnected() {
		return fmt.Errorf("nats: not connected")
	}
	return conn.FlushWithContext(ctx)
}

// Publish sends rec on subject topic. When a flush timeout is configured the
// call waits for the server to acknowledge the flush so that delivery
// failures surface to the caller instead of being lost in the client buffer.
func (p *NATSProducer) Publish(ctx context.Context, topic string, rec models.Record) error {
	conn := p.connection()
	if conn == nil || conn.IsClosed() {
		return errors.ErrServiceUnavailable.WithMessage("message bus producer is closed")
	}

	if err := validSubject(topic); err != nil {
		metrics.IncBusPublish(p.Name(), "error")
		return errors.ErrPublish.WithCause(err)
	}

	body, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(topic)
	msg.Data = body
	msg.Header.Set(constants.HeaderRecordID, rec.ID)
	tracing.InjectTraceContextNATS(ctx, msg.Header)

	start := time.Now()
	err = conn.PublishMsg(msg)
	if err == nil && p.cfg.FlushTimeout > 0 {
		flushCtx, cancel := context.WithTimeout(ctx, p.cfg.FlushTimeout)
		err = conn.FlushWithContext(flushCtx)
		cancel()
	}
	metrics.ObserveBusPublishDuration(p.Name(), time.Since(start))

	if err != nil {
		metrics.IncBusPublish(p.Name(), "error")
		return errors.ErrPublish.WithCause(fmt.Errorf("failed to publish nats message to %s: %w", topic, err))
	}

	metrics.IncBusPublish(p.Name(), "success")
	metrics.ObserveBusMessageSize(p.Name(), len(body))
	return nil
}

// validSubject rejects subjects the client would write verbatim onto the
// protocol line. Whitespace there splits the subject into extra arguments and
// can make the server drop the shared connection.
func validSubject(subject string) error {
	if subject == "" {
		return fmt.Errorf("nats: empty subject")
	}
	if strings.ContainsAny(subject, " \t\r\n") {
		return fmt.Errorf("nats: subject %q contains whitespace", subject)
	}
	return nil
}

func (p *NATSProducer) Close() error {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Drain()
}

type NATSConsumer struct {
	url    string
	cfg    config.NATSConfig
	logger logger.Logger

	mu   sync.Mutex
	conn *nats.Conn
}

func NewNATSConsumer(url string, cfg config.NATSConfig, log logger.Logger) *NATSConsumer {
	return &NATSConsumer{url: url, cfg: cfg, logger: log}
}

// Consume subscribes to topic, which may contain NATS wildcards such as
// "ingest.raw.>", and blocks until ctx is done.
func (c *NATSConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	conn, err := dialNATS(c.url, c.cfg, c.logger)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	sub, err := conn.Subscribe(topic, func(m *nats.Msg) {
		metrics.IncBusMessagesRead(constants.BrokerTypeNATS, m.Subject)

		rec, err := decodeRecord(m.Data)
		if err != nil {
			c.logger.ErrorwCtx(ctx, "Failed to decode record",
				"error", err,
				"subject", m.Subject,
			)
			return
		}

		msgCtx := tracing.ExtractTraceContextNATS(ctx, m.Header)
		msgCtx = logging.WithRecordID(msgCtx, rec.ID)
		if err := handler(msgCtx, rec); err != nil {
			c.logger.ErrorwCtx(msgCtx, "Handler failed for record",
				"error", err,
				"subject", m.Subject,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("nats: failed to subscribe to %s: %w", topic, err)
	}
	c.logger.InfowCtx(ctx, "Started consuming", "topic", topic)

	<-ctx.Done()
	_ = sub.Unsubscribe()
	c.logger.InfowCtx(ctx, "Stopped consuming", "topic", topic, "reason", "context canceled")
	return ctx.Err()
}

func (c *NATSConsumer) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Drain()
}
