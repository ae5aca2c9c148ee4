package models

import "encoding/json"

type TriggerAction string

const (
	TriggerStart TriggerAction = "start"
	TriggerStop  TriggerAction = "stop"
)

// TriggerRequest is what a processor wants sent to the workflow engine.
// ExecutionName doubles as the idempotency key and must be derived only from
// stable record fields.
type TriggerRequest struct {
	Action        TriggerAction   `json:"action"`
	ExecutionName string          `json:"execution_name"`
	WorkflowRef   string          `json:"workflow_ref"`
	Input         json.RawMessage `json:"input,omitempty"`
	Cause         string          `json:"cause,omitempty"`
}

func (r TriggerRequest) IdempotencyKey() string {
	return string(r.Action) + ":" + r.WorkflowRef + ":" + r.ExecutionName
}
