package ingress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"cdcrouter/internal/broker"
	"cdcrouter/internal/logger"
	"cdcrouter/internal/quarantine"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/logging"
	"cdcrouter/pkg/models"
)

// KafkaHandler dispatches DynamoDB stream event documents read from a topic.
// Messages that do not decode are quarantined with their raw bytes.
type KafkaHandler struct {
	dispatcher Dispatcher
	forwarder  quarantine.Forwarder
	logger     logger.Logger
}

func NewKafkaHandler(d Dispatcher, fwd quarantine.Forwarder, log logger.Logger) *KafkaHandler {
	return &KafkaHandler{dispatcher: d, forwarder: fwd, logger: log}
}

func (h *KafkaHandler) Handle(ctx context.Context, msg broker.Message) error {
	ctx = logging.WithInvocationID(ctx, invocationIDFor(msg))

	var event events.DynamoDBEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return h.quarantineRaw(ctx, msg, errors.ErrValidation.WithCause(err))
	}

	if len(event.Records) == 0 {
		h.logger.DebugwCtx(ctx, "Skipping message without records",
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}

	batch, err := ToBatch(event)
	if err != nil {
		return h.quarantineRaw(ctx, msg, errors.ErrValidation.WithCause(err))
	}

	out, err := h.dispatcher.Dispatch(ctx, batch)
	if err != nil {
		return err
	}

	h.logger.DebugwCtx(ctx, "Message dispatched",
		"topic", msg.Topic,
		"offset", msg.Offset,
		"path", out.Path,
	)
	return nil
}

func (h *KafkaHandler) quarantineRaw(ctx context.Context, msg broker.Message, cause error) error {
	messageID, err := forwardRaw(ctx, h.forwarder, msg.Value, cause)
	if err != nil {
		return err
	}

	h.logger.WarnwCtx(ctx, "Quarantined undecodable message",
		"error", cause,
		"topic", msg.Topic,
		"offset", msg.Offset,
		"message_id", messageID,
	)
	return nil
}

// forwardRaw quarantines input that never became a batch. The envelope has no
// source and an empty batch.
func forwardRaw(ctx context.Context, fwd quarantine.Forwarder, raw []byte, cause error) (string, error) {
	env := quarantine.NewEnvelope("", models.ChangeBatch{Records: []models.ChangeRecord{}}, cause)
	env.RawPayload = raw
	return fwd.Forward(ctx, env)
}

func invocationIDFor(msg broker.Message) string {
	if msg.Topic == "" {
		return uuid.NewString()
	}
	return fmt.Sprintf("%s/%d@%d", msg.Topic, msg.Partition, msg.Offset)
}
