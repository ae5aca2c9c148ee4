package ingress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"cdcrouter/internal/constants"
	"cdcrouter/internal/dispatch"
	"cdcrouter/internal/logger"
	"cdcrouter/internal/quarantine"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/logging"
	"cdcrouter/pkg/models"
)

// Dispatcher is the controller as seen by an ingress adapter.
type Dispatcher interface {
	Dispatch(ctx context.Context, batch models.ChangeBatch) (dispatch.Outcome, error)
}

type LambdaHandler struct {
	dispatcher Dispatcher
	forwarder  quarantine.Forwarder
	logger     logger.Logger
	toBatch    func(events.DynamoDBEvent) (models.ChangeBatch, error)
}

func NewLambdaHandler(d Dispatcher, fwd quarantine.Forwarder, log logger.Logger) *LambdaHandler {
	return &LambdaHandler{dispatcher: d, forwarder: fwd, logger: log, toBatch: ToBatch}
}

// Handle is the Lambda entry point. A returned error makes the platform
// redeliver the whole batch.
func (h *LambdaHandler) Handle(ctx context.Context, event events.DynamoDBEvent) (string, error) {
	ctx = logging.WithInvocationID(ctx, invocationID(ctx))
	ctx = logging.WithServiceName(ctx, constants.ServiceName)

	if len(event.Records) == 0 {
		h.logger.InfowCtx(ctx, "Received empty stream event")
		return fmt.Sprintf(constants.InvocationSummaryFormat, 0), nil
	}

	batch, err := h.toBatch(event)
	if err != nil {
		return h.quarantineEvent(ctx, event, errors.ErrValidation.WithCause(err))
	}

	h.logger.InfowCtx(ctx, "Received stream records", "records", batch.Len())

	out, err := h.dispatcher.Dispatch(ctx, batch)
	if err != nil {
		h.logger.ErrorwCtx(ctx, "Dispatch failed",
			"error", err,
			"path", out.Path,
			"records", batch.Len(),
		)
		return "", err
	}

	return fmt.Sprintf(constants.InvocationSummaryFormat, batch.Len()), nil
}

// quarantineEvent forwards an event that could not be converted, carrying the
// event document as the raw payload. Only a failed forward is returned.
func (h *LambdaHandler) quarantineEvent(ctx context.Context, event events.DynamoDBEvent, cause error) (string, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		h.logger.WarnwCtx(ctx, "Failed to marshal stream event for quarantine", "error", err)
	}

	messageID, err := forwardRaw(ctx, h.forwarder, raw, cause)
	if err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to quarantine unconvertible stream event",
			"error", err,
			"cause", cause,
			"records", len(event.Records),
		)
		return "", err
	}

	h.logger.WarnwCtx(ctx, "Quarantined unconvertible stream event",
		"error", cause,
		"records", len(event.Records),
		"message_id", messageID,
	)
	return fmt.Sprintf(constants.InvocationSummaryFormat, len(event.Records)), nil
}

func invocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
