package broker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"

	"cdcrouter/internal/config"
	"cdcrouter/internal/constants"
	"cdcrouter/internal/logger"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/logging"
	"cdcrouter/pkg/metrics"
	"cdcrouter/pkg/retry"
	"cdcrouter/pkg/tracing"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

type ProducerOption func(*kafka.Writer)

// WithMaxAttempts caps the writer's own delivery attempts. Callers that retry
// around Publish set it to 1.
func WithMaxAttempts(n int) ProducerOption {
	return func(w *kafka.Writer) {
		w.MaxAttempts = n
	}
}

func NewKafkaProducer(brokers []string, log logger.Logger, opts ...ProducerOption) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	for _, opt := range opts {
		opt(w)
	}
	return &KafkaProducer{writer: w, logger: log}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg Message) error {
	carried := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		carried[k] = v
	}
	headers := toKafkaHeaders(tracing.InjectHeaders(ctx, carried))

	start := time.Now()
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    time.Now(),
	})
	metrics.ObserveKafkaWriteDuration(constants.ServiceName, topic, time.Since(start))

	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten(constants.ServiceName, topic)
	metrics.ObserveKafkaMessageSize(constants.ServiceName, topic, "out", len(msg.Value))
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// messageReader is the part of *kafka.Reader the consume loop needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConsumer struct {
	cfg         config.KafkaConfig
	reader      messageReader
	newReader   func(topic string) messageReader
	logger      logger.Logger
	serviceName string
	fetchDelay  time.Duration
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	c := &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: constants.ServiceName,
		fetchDelay:  time.Second,
	}
	c.newReader = func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
	}
	return c
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
}

// Consume runs the handler for each message in order and commits after a
// successful handle. When the handler still fails after the retry policy the
// message is left uncommitted and Consume returns the error, so the group
// redelivers it after restart.
func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
		"service_name", c.serviceName,
	)
	c.reader = c.newReader(topic)

	consumeCtx := logging.WithServiceName(ctx, c.serviceName)
	c.logger.InfowCtx(consumeCtx, "Started consuming", "topic", topic)

	for {
		fetchStart := time.Now()
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfowCtx(consumeCtx, "Stopped consuming",
					"topic", topic,
					"reason", "context canceled",
				)
				return nil
			}
			c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message",
				"error", err,
				"topic", topic,
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.fetchDelay):
			}
			continue
		}
		metrics.ObserveKafkaReadDuration(c.serviceName, topic, time.Since(fetchStart))
		metrics.IncKafkaMessagesRead(c.serviceName, topic)
		metrics.ObserveKafkaMessageSize(c.serviceName, topic, "in", len(m.Value))
		if m.HighWaterMark > 0 {
			metrics.SetKafkaConsumerLag(c.serviceName, topic, m.Partition, m.HighWaterMark-m.Offset-1)
		}

		if err := c.handle(ctx, m, handler); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.ErrorwCtx(consumeCtx, "Failed to commit message",
				"error", err,
				"topic", topic,
				"offset", m.Offset,
			)
		}
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, m kafka.Message, handler HandlerFunc) error {
	msg := fromKafka(m)
	msgCtx, span := tracing.StartConsumerSpan(ctx, "kafka.consume", msg.Headers,
		attribute.String("messaging.destination", m.Topic),
		attribute.Int("messaging.kafka.partition", m.Partition),
		attribute.Int64("messaging.kafka.offset", m.Offset),
	)
	msgCtx = logging.WithServiceName(msgCtx, c.serviceName)
	if traceID := tracing.TraceID(msgCtx); traceID != "" {
		msgCtx = logging.WithTraceID(msgCtx, traceID)
	}

	err := c.processMessageWithRetry(msgCtx, msg, handler)
	tracing.EndSpan(span, err)

	if err != nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to process message after retries, leaving uncommitted",
			"error", err,
			"topic", m.Topic,
			"partition", m.Partition,
			"offset", m.Offset,
		)
		return fmt.Errorf("message %s/%d@%d: %w", m.Topic, m.Partition, m.Offset, err)
	}
	return nil
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

func (c *KafkaConsumer) retryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     c.cfg.Retry.MaxAttempts,
		InitialInterval: c.cfg.Retry.InitialInterval,
		MaxInterval:     c.cfg.Retry.MaxInterval,
		Multiplier:      c.cfg.Retry.Multiplier,
		MaxElapsedTime:  c.cfg.Retry.MaxElapsedTime,
	}.WithDefaults()
}

func (c *KafkaConsumer) processMessageWithRetry(ctx context.Context, msg Message, handler HandlerFunc) error {
	policy := c.retryPolicy()

	return retry.RetryWithCallback(ctx, policy, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverPanic(r)
				c.logger.ErrorwCtx(ctx, "Panic recovered during message processing",
					"error", err,
					"topic", msg.Topic,
				)
			}
		}()
		return handler(ctx, msg)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.IncRetryAttempt(c.serviceName, msg.Topic)
		c.logger.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", msg.Topic,
		)
	})
}

func fromKafka(m kafka.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   headers,
		Time:      m.Time,
	}
}

func toKafkaHeaders(headers map[string]string) []kafka.Header {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		out = append(out, kafka.Header{Key: k, Value: []byte(headers[k])})
	}
	return out
}
