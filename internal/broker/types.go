package broker

import (
	"context"
	"encoding/json"

	"ingest/pkg/errors"
	"ingest/pkg/models"
)

// Producer publishes records to the message bus. Implementations are safe for concurrent use.
type Producer interface {
	Publish(ctx context.Context, topic string, rec models.Record) error
	Close() error
}

// Bus is a Producer whose connection is established explicitly at startup.
type Bus interface {
	Producer
	Connect(ctx context.Context) error
	Ping(ctx context.Context) error
	Name() string
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
}

type HandlerFunc func(ctx context.Context, rec models.Record) error

func encodeRecord(rec models.Record) ([]byte, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.ErrSerialization.WithCause(err)
	}
	return body, nil
}

func decodeRecord(body []byte) (models.Record, error) {
	var rec models.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return models.Record{}, errors.ErrSerialization.WithMessage("failed to decode record").WithCause(err)
	}
	return rec, nil
}
