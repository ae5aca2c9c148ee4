// Package processor holds the per-source decision logic that turns change
// records into workflow trigger intents.
package processor

import (
	"context"

	"cdcrouter/pkg/models"
)

// Processor inspects a whole batch and returns the triggers it wants
// submitted. It must not call the workflow engine itself, and repeated calls
// with the same batch must yield the same execution names.
type Processor interface {
	Process(ctx context.Context, batch models.ChangeBatch) ([]models.TriggerRequest, error)
}

// Func adapts a plain function to Processor.
type Func func(ctx context.Context, batch models.ChangeBatch) ([]models.TriggerRequest, error)

func (f Func) Process(ctx context.Context, batch models.ChangeBatch) ([]models.TriggerRequest, error) {
	return f(ctx, batch)
}
