// Package workflow submits trigger requests to the workflow engine.
package workflow

import (
	"context"
	"strings"

	"cdcrouter/pkg/models"
)

// Result is the definitive outcome of one submission. Duplicate means the
// engine (or the ledger) already knew the execution; it is not an error.
type Result struct {
	ExecutionARN string
	Duplicate    bool
}

type Engine interface {
	Submit(ctx context.Context, req models.TriggerRequest) (Result, error)
}

// ExecutionARN derives an execution ARN from its state machine ARN:
// arn:aws:states:REGION:ACCOUNT:stateMachine:NAME -> ...:execution:NAME:EXEC.
func ExecutionARN(stateMachineARN, executionName string) string {
	return strings.Replace(stateMachineARN, ":stateMachine:", ":execution:", 1) + ":" + executionName
}
