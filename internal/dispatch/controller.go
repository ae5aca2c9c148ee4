// Package dispatch routes one change batch to its processor, submits the
// resulting workflow triggers and quarantines the batch when any of that fails.
package dispatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"cdcrouter/internal/constants"
	"cdcrouter/internal/logger"
	"cdcrouter/internal/processor"
	"cdcrouter/internal/quarantine"
	"cdcrouter/internal/registry"
	"cdcrouter/internal/resolver"
	"cdcrouter/internal/workflow"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/logging"
	"cdcrouter/pkg/metrics"
	"cdcrouter/pkg/models"
	"cdcrouter/pkg/tracing"
)

const unresolvedSource = "unresolved"

type Policy struct {
	// OnMalformedIdentifier is constants.OnMalformedQuarantine or
	// constants.OnMalformedFail.
	OnMalformedIdentifier string
}

type Controller struct {
	registry  *registry.Registry
	resolver  resolver.Resolver
	engine    workflow.Engine
	forwarder quarantine.Forwarder
	policy    Policy
	logger    logger.Logger
}

func NewController(reg *registry.Registry, res resolver.Resolver, engine workflow.Engine, fwd quarantine.Forwarder, policy Policy, log logger.Logger) *Controller {
	if res == nil {
		res = resolver.ARNResolver{}
	}
	if policy.OnMalformedIdentifier == "" {
		policy.OnMalformedIdentifier = constants.OnMalformedQuarantine
	}
	return &Controller{
		registry:  reg,
		resolver:  res,
		engine:    engine,
		forwarder: fwd,
		policy:    policy,
		logger:    log,
	}
}

// Dispatch runs one batch to a terminal state. Processing and trigger failures
// are quarantined and reported as success; the returned error is non-nil only
// for an empty batch, a failed quarantine forward, or a malformed identifier
// under the fail policy.
func (c *Controller) Dispatch(ctx context.Context, batch models.ChangeBatch) (out Outcome, err error) {
	if batch.IsEmpty() {
		return out, errors.ErrEmptyBatch
	}

	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "dispatch.batch",
		attribute.Int("cdc.records", batch.Len()),
	)
	defer func() {
		source := out.Source.String()
		if source == "" {
			source = unresolvedSource
		}
		metrics.IncBatch(source, string(out.Path))
		metrics.AddRecords(source, batch.Len())
		metrics.ObserveDispatchDuration(string(out.Path), time.Since(start))

		span.SetAttributes(
			attribute.String("cdc.source", source),
			attribute.String("cdc.path", string(out.Path)),
		)
		tracing.EndSpan(span, err)
	}()

	out.enter(StateResolving)
	first, _ := batch.First()
	source, resErr := c.resolver.Resolve(first.OriginIdentifier)
	if resErr != nil {
		if c.policy.OnMalformedIdentifier == constants.OnMalformedFail {
			c.logger.ErrorwCtx(ctx, "Rejecting batch with malformed origin identifier",
				"error", resErr,
				"origin", first.OriginIdentifier,
				"records", batch.Len(),
			)
			out.Path = PathFailed
			out.enter(StateDone)
			return out, resErr
		}
		return c.quarantine(ctx, out, batch, resErr)
	}

	out.Source = source
	ctx = logging.WithLogicalSource(ctx, source.String())
	c.warnMixedSources(ctx, batch, first, source)

	out.enter(StateDispatching)
	proc, ok := c.registry.Lookup(source)
	if !ok {
		c.logger.DebugwCtx(ctx, "No processor registered for source, skipping batch",
			"records", batch.Len(),
		)
		out.Path = PathUnrouted
		out.enter(StateCompleted)
		out.enter(StateDone)
		return out, nil
	}

	intents, procErr := c.process(ctx, proc, batch)
	if procErr != nil {
		return c.quarantine(ctx, out, batch, procErr)
	}

	for _, intent := range intents {
		res, subErr := c.engine.Submit(ctx, intent)
		if subErr != nil {
			metrics.IncTrigger(string(intent.Action), "error")
			c.logger.ErrorwCtx(ctx, "Workflow trigger failed",
				"error", subErr,
				"action", intent.Action,
				"execution_name", intent.ExecutionName,
			)
			return c.quarantine(ctx, out, batch, subErr)
		}

		out.Triggers++
		if res.Duplicate {
			out.Duplicates++
			metrics.IncTrigger(string(intent.Action), "duplicate")
		} else {
			metrics.IncTrigger(string(intent.Action), "submitted")
		}
	}

	out.Handled = batch.Len()
	out.Path = PathCompleted
	out.enter(StateCompleted)
	out.enter(StateDone)

	c.logger.InfowCtx(ctx, "Batch dispatched",
		"records", out.Handled,
		"triggers", out.Triggers,
		"duplicates", out.Duplicates,
	)
	return out, nil
}

func (c *Controller) process(ctx context.Context, proc processor.Processor, batch models.ChangeBatch) (intents []models.TriggerRequest, err error) {
	ctx, span := tracing.StartSpan(ctx, "dispatch.process")
	defer func() { tracing.EndSpan(span, err) }()

	defer func() {
		if r := recover(); r != nil {
			err = errors.RecoverPanic(r)
			c.logger.ErrorwCtx(ctx, "Panic recovered in processor", "error", err)
		}
	}()

	return proc.Process(ctx, batch)
}

// quarantine forwards the original batch and swallows cause. Only a forward
// failure is returned.
func (c *Controller) quarantine(ctx context.Context, out Outcome, batch models.ChangeBatch, cause error) (Outcome, error) {
	out.enter(StateQuarantining)

	env := quarantine.NewEnvelope(out.Source, batch, cause)
	class := env.Failure.Class

	messageID, err := c.forwarder.Forward(ctx, env)
	if err != nil {
		c.logger.ErrorwCtx(ctx, "Quarantine forward failed",
			"error", err,
			"cause", cause,
			"class", class,
			"records", batch.Len(),
		)
		out.Path = PathFailed
		out.enter(StateDone)
		if !errors.IsForward(err) {
			err = errors.ErrForward.WithCause(err)
		}
		return out, err
	}

	source := out.Source.String()
	if source == "" {
		source = unresolvedSource
	}
	metrics.IncQuarantined(source, class)

	c.logger.WarnwCtx(ctx, "Batch quarantined",
		"cause", cause,
		"class", class,
		"message_id", messageID,
		"records", batch.Len(),
	)

	out.MessageID = messageID
	out.Path = PathQuarantined
	out.enter(StateDone)
	return out, nil
}

// warnMixedSources logs records that resolve elsewhere than the first one.
// Routing still follows the first record.
func (c *Controller) warnMixedSources(ctx context.Context, batch models.ChangeBatch, first models.ChangeRecord, source models.LogicalSource) {
	mismatched := 0
	for _, r := range batch.Records[1:] {
		if r.OriginIdentifier == first.OriginIdentifier {
			continue
		}
		other, err := c.resolver.Resolve(r.OriginIdentifier)
		if err == nil && other == source {
			continue
		}
		mismatched++
		c.logger.WarnwCtx(ctx, "Record origin differs from batch source",
			"event_id", r.EventID,
			"origin", r.OriginIdentifier,
			"batch_origin", first.OriginIdentifier,
		)
	}
	if mismatched > 0 {
		metrics.IncMixedSourceBatch(source.String())
	}
}
