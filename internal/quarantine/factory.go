package quarantine

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"

	"cdcrouter/internal/broker"
	"cdcrouter/internal/config"
	"cdcrouter/internal/constants"
	"cdcrouter/internal/logger"
)

// NewForwarder builds the backend named by cfg.Quarantine.Type. The returned
// closer releases backend connections and is never nil.
func NewForwarder(awsCfg aws.Config, cfg *config.Config, log logger.Logger) (Forwarder, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Quarantine.Type {
	case constants.QuarantineTypeSQS:
		client := NewSQSClient(awsCfg, cfg.AWS, cfg.Quarantine.Client)
		return NewSQSForwarder(client, cfg.Quarantine.SQS.QueueURL, cfg.Quarantine.Client.CallTimeout, log), noop, nil
	case constants.QuarantineTypeKafka:
		producer, err := broker.NewProducer(cfg.Quarantine.Kafka.Brokers, log, broker.WithMaxAttempts(1))
		if err != nil {
			return nil, noop, err
		}
		return NewKafkaForwarder(producer, cfg.Quarantine.Kafka.Topic, cfg.Quarantine.Client, log), producer.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported quarantine type: %s", cfg.Quarantine.Type)
	}
}
