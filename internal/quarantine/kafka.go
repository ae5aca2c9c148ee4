package quarantine

import (
	"context"
	"strconv"
	"time"

	"cdcrouter/internal/broker"
	"cdcrouter/internal/config"
	"cdcrouter/internal/constants"
	"cdcrouter/internal/logger"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/metrics"
	"cdcrouter/pkg/models"
	"cdcrouter/pkg/retry"
)

// KafkaForwarder publishes envelopes keyed by envelope ID.
type KafkaForwarder struct {
	producer    broker.Producer
	topic       string
	policy      retry.Policy
	callTimeout time.Duration
	logger      logger.Logger
}

func NewKafkaForwarder(producer broker.Producer, topic string, cfg config.ClientConfig, log logger.Logger) *KafkaForwarder {
	return &KafkaForwarder{
		producer:    producer,
		topic:       topic,
		policy:      policyFromClient(cfg),
		callTimeout: cfg.CallTimeout,
		logger:      log,
	}
}

func policyFromClient(cfg config.ClientConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts:     cfg.MaxRetries + 1,
		InitialInterval: cfg.RetryBaseDelay,
		MaxInterval:     cfg.RetryMaxDelay,
		Multiplier:      2.0,
		MaxElapsedTime:  cfg.CallTimeout,
	}.WithDefaults()
}

func (f *KafkaForwarder) Forward(ctx context.Context, env models.QuarantineEnvelope) (string, error) {
	body, err := Encode(&env)
	if err != nil {
		return "", errors.ErrForward.WithCause(err)
	}

	ctx, cancel := retry.WithCallTimeout(ctx, f.callTimeout)
	defer cancel()

	msg := broker.Message{
		Key:   []byte(env.ID),
		Value: body,
		Headers: map[string]string{
			"envelope-version": strconv.Itoa(env.Version),
			"error-class":      env.Failure.Class,
			"source":           env.Source,
		},
	}

	err = retry.RetryWithCallback(ctx, f.policy, func() error {
		return f.producer.Publish(ctx, f.topic, msg)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.IncRetryAttempt(constants.ServiceName, f.topic)
		f.logger.WarnwCtx(ctx, "Retrying quarantine publish",
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
			"topic", f.topic,
		)
	})
	if err != nil {
		metrics.IncQuarantineForwardFailure(constants.QuarantineTypeKafka)
		return "", errors.ErrForward.
			WithCause(err).
			WithDetail("envelope_id", env.ID).
			WithMessage("failed to publish envelope %s to quarantine topic %s", env.ID, f.topic)
	}

	f.logger.InfowCtx(ctx, "Forwarded batch to quarantine topic",
		"envelope_id", env.ID,
		"topic", f.topic,
		"records", env.Batch.Len(),
	)
	return env.ID, nil
}
