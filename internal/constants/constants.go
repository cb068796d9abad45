package constants

import "time"

const (
	ServiceName = "ingestion-service"
)

const (
	// TopicPrefix is prepended to a record's content type to form its bus topic.
	TopicPrefix = "ingest.raw."
)

const (
	StatusOperational = "operational"
)

const (
	BrokerTypeKafka = "kafka"
	BrokerTypeNATS  = "nats"
)

const (
	ReadinessCheckTimeout = 5 * time.Second
)

const (
	HeaderRequestID   = "X-Request-ID"
	HeaderRecordID    = "X-Record-ID"
	HeaderContentType = "Content-Type"
)

const (
	OutcomePublished = "published"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

const (
	EndpointSingle = "single"
	EndpointBatch  = "batch"
)
