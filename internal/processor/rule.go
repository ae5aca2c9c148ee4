package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"cdcrouter/internal/config"
	"cdcrouter/internal/logger"
	"cdcrouter/pkg/cel"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/metrics"
	"cdcrouter/pkg/models"
)

type rule struct {
	name       string
	condition  *cel.Condition
	action     models.TriggerAction
	workflow   string
	nameFields []string
}

// RuleProcessor evaluates configured CEL conditions against every record.
// Each matching rule yields one trigger; a record may match several rules.
type RuleProcessor struct {
	source models.LogicalSource
	rules  []rule
	logger logger.Logger
}

// NewRuleProcessor compiles every condition up front so a bad expression
// fails at startup rather than per batch.
func NewRuleProcessor(eval *cel.Evaluator, cfg config.ProcessorConfig, log logger.Logger) (*RuleProcessor, error) {
	rules := make([]rule, 0, len(cfg.Rules))

	for _, rc := range cfg.Rules {
		cond, err := eval.CompileCondition(rc.Condition)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rc.Name, err)
		}

		action := models.TriggerAction(rc.Action)
		if action == "" {
			action = models.TriggerStart
		}

		rules = append(rules, rule{
			name:       rc.Name,
			condition:  cond,
			action:     action,
			workflow:   rc.Workflow,
			nameFields: rc.NameFields,
		})
	}

	return &RuleProcessor{
		source: models.LogicalSource(cfg.Source),
		rules:  rules,
		logger: log,
	}, nil
}

func (p *RuleProcessor) Process(ctx context.Context, batch models.ChangeBatch) ([]models.TriggerRequest, error) {
	var triggers []models.TriggerRequest

	for _, record := range batch.Records {
		recordTriggers, err := p.processRecord(ctx, record)
		if err != nil {
			return nil, errors.ErrProcessing.
				WithCause(err).
				WithDetail("event_id", record.EventID)
		}
		triggers = append(triggers, recordTriggers...)
	}

	return triggers, nil
}

func (p *RuleProcessor) processRecord(ctx context.Context, record models.ChangeRecord) ([]models.TriggerRequest, error) {
	if err := models.ValidateChangeRecord(record); err != nil {
		return nil, err
	}
	keys, err := DecodeImage(record.Keys)
	if err != nil {
		return nil, err
	}
	oldImage, err := DecodeImage(record.OldImage)
	if err != nil {
		return nil, err
	}
	newImage, err := DecodeImage(record.NewImage)
	if err != nil {
		return nil, err
	}

	act := cel.Activation{
		Event:  string(record.ChangeType),
		Source: string(p.source),
		Keys:   keys,
		Old:    oldImage,
		New:    newImage,
	}

	var triggers []models.TriggerRequest
	for _, r := range p.rules {
		matched, err := r.condition.Eval(ctx, act)
		if err != nil {
			metrics.IncRuleEvaluation(string(p.source), r.name, "error")
			return nil, fmt.Errorf("rule %s: %w", r.name, err)
		}
		if !matched {
			metrics.IncRuleEvaluation(string(p.source), r.name, "skipped")
			continue
		}
		metrics.IncRuleEvaluation(string(p.source), r.name, "matched")

		trigger, err := r.trigger(act, record)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.name, err)
		}

		p.logger.DebugwCtx(ctx, "Rule matched",
			"rule", r.name,
			"event_id", record.EventID,
			"execution_name", trigger.ExecutionName,
		)
		triggers = append(triggers, trigger)
	}

	return triggers, nil
}

func (r rule) trigger(act cel.Activation, record models.ChangeRecord) (models.TriggerRequest, error) {
	image := act.New
	if record.ChangeType == models.ChangeRemoved {
		image = act.Old
	}

	parts := []string{r.name}
	for _, field := range r.nameFields {
		v, ok := lookupField(field, image, act.Keys)
		if !ok {
			return models.TriggerRequest{}, fmt.Errorf("name field %s is missing", field)
		}
		parts = append(parts, v)
	}
	if len(r.nameFields) == 0 {
		if record.EventID == "" {
			return models.TriggerRequest{}, fmt.Errorf("record has no event id and rule has no name fields")
		}
		parts = append(parts, record.EventID)
	}

	trigger := models.TriggerRequest{
		Action:        r.action,
		ExecutionName: ExecutionName(parts...),
		WorkflowRef:   r.workflow,
	}

	if r.action == models.TriggerStop {
		trigger.Cause = fmt.Sprintf("rule %s matched %s", r.name, record.ChangeType)
		return trigger, nil
	}

	doc := make(map[string]interface{}, len(image)+2)
	for k, v := range image {
		doc[k] = v
	}
	doc["source"] = act.Source
	doc["event"] = act.Event

	input, err := json.Marshal(doc)
	if err != nil {
		return models.TriggerRequest{}, fmt.Errorf("encode input: %w", err)
	}
	trigger.Input = input

	return trigger, nil
}

// lookupField reads a name field from the image, falling back to the keys.
func lookupField(field string, image, keys map[string]interface{}) (string, bool) {
	for _, m := range []map[string]interface{}{image, keys} {
		v, ok := m[field]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s, s != ""
		}
		return fmt.Sprint(v), true
	}
	return "", false
}
