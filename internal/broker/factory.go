package broker

import (
	"fmt"

	"cdcrouter/internal/config"
	"cdcrouter/internal/logger"
)

func NewProducer(brokers []string, log logger.Logger, opts ...ProducerOption) (Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka producer requires at least one broker")
	}
	return NewKafkaProducer(brokers, log, opts...), nil
}

func NewConsumer(cfg config.KafkaConfig, log logger.Logger) (Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	}
	return NewKafkaConsumer(cfg, log), nil
}
