package broker

import (
	"fmt"

	"ingest/internal/config"
	"ingest/internal/constants"
	"ingest/internal/logger"
)

func NewBus(cfg config.BrokerConfig, log logger.Logger) (Bus, error) {
	switch cfg.Type {
	case constants.BrokerTypeKafka:
		return NewKafkaProducer(cfg.Kafka, log), nil
	case constants.BrokerTypeNATS:
		return NewNATSProducer(cfg.URL, cfg.NATS, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case constants.BrokerTypeKafka:
		return NewKafkaConsumer(cfg.Kafka, log), nil
	case constants.BrokerTypeNATS:
		return NewNATSConsumer(cfg.URL, cfg.NATS, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
