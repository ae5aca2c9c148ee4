package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cdcrouter/internal/logger"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/models"
)

// Evaluation job statuses that drive workflow transitions.
const (
	JobStatusInProgress = "InProgress"
	JobStatusStopping   = "Stopping"
)

// Application types selecting the evaluation workflow.
const (
	ApplicationModelEvaluation = "ModelEvaluation"
	ApplicationRAGEvaluation   = "RagEvaluation"
	ApplicationAgentEvaluation = "AgentEvaluation"
)

// Image attribute names.
const (
	attrJobID                   = "jobId"
	attrJobArn                  = "jobArn"
	attrAccountID               = "accountId"
	attrStatus                  = "status"
	attrApplicationType         = "applicationType"
	attrJobType                 = "jobType"
	attrHasVpcConfig            = "hasVpcConfig"
	attrShouldSkipInference     = "shouldSkipInference"
	attrHasEvaluatorModelConfig = "hasEvaluatorModelConfig"
	attrTaskInput               = "taskInput"
	attrBedrockModelMetadataMap = "bedrockModelMetadataMap"
)

type EvaluationWorkflows struct {
	ModelEvaluation string
	RAGEvaluation   string
	AgentEvaluation string
}

func (w EvaluationWorkflows) forApplication(appType string) (string, error) {
	var arn string
	switch appType {
	case "", ApplicationModelEvaluation:
		arn = w.ModelEvaluation
	case ApplicationRAGEvaluation:
		arn = w.RAGEvaluation
	case ApplicationAgentEvaluation:
		arn = w.AgentEvaluation
	default:
		return "", fmt.Errorf("unknown application type %q", appType)
	}
	if arn == "" {
		return "", fmt.Errorf("no workflow configured for application type %q", appType)
	}
	return arn, nil
}

// evaluationJobInput mirrors the paths the evaluation state machines read.
type evaluationJobInput struct {
	JobArn                  string `json:"jobArn"`
	JobID                   string `json:"jobId"`
	AccountID               string `json:"accountId,omitempty"`
	JobType                 string `json:"jobType,omitempty"`
	HasVpcConfig            bool   `json:"hasVpcConfig"`
	ShouldSkipInference     bool   `json:"shouldSkipInference"`
	HasEvaluatorModelConfig bool   `json:"hasEvaluatorModelConfig"`
	TaskInput               string `json:"taskInput,omitempty"`
	BedrockModelMetadataMap string `json:"bedrockModelMetadataMap,omitempty"`
}

// EvaluationJobProcessor starts an evaluation workflow when a job enters
// InProgress and stops it when the job enters Stopping.
type EvaluationJobProcessor struct {
	workflows EvaluationWorkflows
	logger    logger.Logger
}

func NewEvaluationJobProcessor(workflows EvaluationWorkflows, log logger.Logger) *EvaluationJobProcessor {
	return &EvaluationJobProcessor{workflows: workflows, logger: log}
}

func (p *EvaluationJobProcessor) Process(ctx context.Context, batch models.ChangeBatch) ([]models.TriggerRequest, error) {
	var triggers []models.TriggerRequest

	for _, record := range batch.Records {
		trigger, ok, err := p.processRecord(record)
		if err != nil {
			return nil, errors.ErrProcessing.
				WithCause(err).
				WithDetail("event_id", record.EventID)
		}
		if !ok {
			p.logger.DebugwCtx(ctx, "Skipping evaluation job record",
				"event_id", record.EventID,
				"change_type", record.ChangeType,
			)
			continue
		}
		triggers = append(triggers, trigger)
	}

	return triggers, nil
}

func (p *EvaluationJobProcessor) processRecord(record models.ChangeRecord) (models.TriggerRequest, bool, error) {
	if err := models.ValidateChangeRecord(record); err != nil {
		return models.TriggerRequest{}, false, err
	}
	if record.ChangeType != models.ChangeInserted && record.ChangeType != models.ChangeModified {
		return models.TriggerRequest{}, false, nil
	}

	newImage, err := DecodeImage(record.NewImage)
	if err != nil {
		return models.TriggerRequest{}, false, err
	}
	oldImage, err := DecodeImage(record.OldImage)
	if err != nil {
		return models.TriggerRequest{}, false, err
	}

	newStatus, _ := stringField(newImage, attrStatus)
	oldStatus, _ := stringField(oldImage, attrStatus)

	var action models.TriggerAction
	switch {
	case record.ChangeType == models.ChangeInserted && newStatus == JobStatusInProgress:
		action = models.TriggerStart
	case record.ChangeType == models.ChangeModified && newStatus != oldStatus && newStatus == JobStatusInProgress:
		action = models.TriggerStart
	case record.ChangeType == models.ChangeModified && newStatus != oldStatus && newStatus == JobStatusStopping:
		action = models.TriggerStop
	default:
		return models.TriggerRequest{}, false, nil
	}

	jobID, _ := stringField(newImage, attrJobID)
	if jobID == "" {
		return models.TriggerRequest{}, false, fmt.Errorf("record is missing %s", attrJobID)
	}

	appType, _ := stringField(newImage, attrApplicationType)
	workflowARN, err := p.workflows.forApplication(appType)
	if err != nil {
		return models.TriggerRequest{}, false, err
	}

	// Both actions address the execution started on entering InProgress.
	name := ExecutionName(jobID, JobStatusInProgress)

	if action == models.TriggerStop {
		return models.TriggerRequest{
			Action:        models.TriggerStop,
			ExecutionName: name,
			WorkflowRef:   workflowARN,
			Cause:         fmt.Sprintf("evaluation job %s is stopping", jobID),
		}, true, nil
	}

	input, err := buildEvaluationInput(jobID, newImage)
	if err != nil {
		return models.TriggerRequest{}, false, err
	}

	return models.TriggerRequest{
		Action:        models.TriggerStart,
		ExecutionName: name,
		WorkflowRef:   workflowARN,
		Input:         input,
	}, true, nil
}

func buildEvaluationInput(jobID string, image map[string]interface{}) (json.RawMessage, error) {
	jobArn, _ := stringField(image, attrJobArn)
	accountID, _ := stringField(image, attrAccountID)
	if accountID == "" {
		accountID = accountFromARN(jobArn)
	}
	jobType, _ := stringField(image, attrJobType)

	taskInput, err := stringOrJSON(image[attrTaskInput])
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", attrTaskInput, err)
	}
	metadataMap, err := stringOrJSON(image[attrBedrockModelMetadataMap])
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", attrBedrockModelMetadataMap, err)
	}

	return json.Marshal(evaluationJobInput{
		JobArn:                  jobArn,
		JobID:                   jobID,
		AccountID:               accountID,
		JobType:                 jobType,
		HasVpcConfig:            boolField(image, attrHasVpcConfig),
		ShouldSkipInference:     boolField(image, attrShouldSkipInference),
		HasEvaluatorModelConfig: boolField(image, attrHasEvaluatorModelConfig),
		TaskInput:               taskInput,
		BedrockModelMetadataMap: metadataMap,
	})
}

// accountFromARN returns the account field of arn:partition:service:region:account:resource.
func accountFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) < 6 {
		return ""
	}
	return parts[4]
}

// stringOrJSON passes strings through and JSON-encodes anything else; the
// state machines read these fields as strings.
func stringOrJSON(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
