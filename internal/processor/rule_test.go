package processor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdcrouter/internal/config"
	"cdcrouter/internal/logger"
	"cdcrouter/pkg/cel"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/models"
)

const ordersSM = "arn:aws:states:us-east-1:123456789012:stateMachine:Orders"

func newRuleProcessor(t *testing.T, rules ...config.RuleConfig) *RuleProcessor {
	t.Helper()
	eval, err := cel.NewEvaluator()
	require.NoError(t, err)

	p, err := NewRuleProcessor(eval, config.ProcessorConfig{Source: "Orders", Rules: rules}, logger.NopLogger())
	require.NoError(t, err)
	return p
}

func orderRecord(ct models.ChangeType, oldImage, newImage string) models.ChangeRecord {
	b := models.NewChangeRecordBuilder().
		WithEventID("evt-9").
		WithOrigin("arn:aws:dynamodb:us-east-1:123456789012:table/Orders-prod").
		WithChangeType(ct).
		WithKeys(`{"orderId":{"S":"o-1"}}`)
	if oldImage != "" {
		b.WithOldImage(oldImage)
	}
	if newImage != "" {
		b.WithNewImage(newImage)
	}
	return b.Build()
}

func TestRuleProcessor_MatchBuildsTrigger(t *testing.T) {
	p := newRuleProcessor(t, config.RuleConfig{
		Name:       "order-created",
		Condition:  `event == "INSERT" && new.status == "Created"`,
		Workflow:   ordersSM,
		NameFields: []string{"orderId"},
	})

	triggers, err := p.Process(context.Background(), models.NewChangeBatch(
		orderRecord(models.ChangeInserted, "", `{"orderId":{"S":"o-1"},"status":{"S":"Created"},"total":{"N":"12"}}`),
	))
	require.NoError(t, err)
	require.Len(t, triggers, 1)

	tr := triggers[0]
	assert.Equal(t, models.TriggerStart, tr.Action)
	assert.Equal(t, "order-created-o-1", tr.ExecutionName)
	assert.Equal(t, ordersSM, tr.WorkflowRef)

	var input map[string]interface{}
	require.NoError(t, json.Unmarshal(tr.Input, &input))
	assert.Equal(t, "Orders", input["source"])
	assert.Equal(t, "INSERT", input["event"])
	assert.EqualValues(t, 12, input["total"])
}

func TestRuleProcessor_NoMatchSkips(t *testing.T) {
	p := newRuleProcessor(t, config.RuleConfig{
		Name:      "order-created",
		Condition: `event == "INSERT"`,
		Workflow:  ordersSM,
	})

	triggers, err := p.Process(context.Background(), models.NewChangeBatch(
		orderRecord(models.ChangeModified, `{"status":{"S":"A"}}`, `{"status":{"S":"B"}}`),
	))
	require.NoError(t, err)
	assert.Empty(t, triggers)
}

func TestRuleProcessor_RemoveUsesOldImageAndKeys(t *testing.T) {
	p := newRuleProcessor(t, config.RuleConfig{
		Name:       "order-deleted",
		Condition:  `event == "REMOVE"`,
		Action:     "stop",
		Workflow:   ordersSM,
		NameFields: []string{"orderId"},
	})

	triggers, err := p.Process(context.Background(), models.NewChangeBatch(
		orderRecord(models.ChangeRemoved, `{"status":{"S":"Created"}}`, ""),
	))
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Equal(t, models.TriggerStop, triggers[0].Action)
	assert.Equal(t, "order-deleted-o-1", triggers[0].ExecutionName)
	assert.NotEmpty(t, triggers[0].Cause)
}

func TestRuleProcessor_DefaultNameUsesEventID(t *testing.T) {
	p := newRuleProcessor(t, config.RuleConfig{Name: "any", Condition: `true`, Workflow: ordersSM})

	triggers, err := p.Process(context.Background(), models.NewChangeBatch(
		orderRecord(models.ChangeInserted, "", `{"status":{"S":"Created"}}`),
	))
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Equal(t, "any-evt-9", triggers[0].ExecutionName)
}

func TestRuleProcessor_EvaluationErrorIsProcessingError(t *testing.T) {
	p := newRuleProcessor(t, config.RuleConfig{
		Name:      "needs-status",
		Condition: `new.status == "Created"`,
		Workflow:  ordersSM,
	})

	_, err := p.Process(context.Background(), models.NewChangeBatch(
		orderRecord(models.ChangeRemoved, `{"status":{"S":"Created"}}`, ""),
	))
	require.Error(t, err)
	assert.True(t, errors.IsProcessing(err))
}

func TestRuleProcessor_InvalidChangeTypeIsProcessingError(t *testing.T) {
	p := newRuleProcessor(t, config.RuleConfig{Name: "any", Condition: `true`, Workflow: ordersSM})

	triggers, err := p.Process(context.Background(), models.NewChangeBatch(
		orderRecord("", "", `{"status":{"S":"Created"}}`),
	))
	require.Error(t, err)
	assert.True(t, errors.IsProcessing(err))
	assert.Empty(t, triggers)
}

func TestRuleProcessor_MissingNameField(t *testing.T) {
	p := newRuleProcessor(t, config.RuleConfig{
		Name:       "by-customer",
		Condition:  `true`,
		Workflow:   ordersSM,
		NameFields: []string{"customerId"},
	})

	_, err := p.Process(context.Background(), models.NewChangeBatch(
		orderRecord(models.ChangeInserted, "", `{"status":{"S":"Created"}}`),
	))
	assert.True(t, errors.IsProcessing(err))
}

func TestNewRuleProcessor_InvalidCondition(t *testing.T) {
	eval, err := cel.NewEvaluator()
	require.NoError(t, err)

	_, err = NewRuleProcessor(eval, config.ProcessorConfig{
		Source: "Orders",
		Rules:  []config.RuleConfig{{Name: "bad", Condition: `payload.x == 1`, Workflow: ordersSM}},
	}, logger.NopLogger())
	assert.Error(t, err)
}
