package bootstrap

import (
	"fmt"

	"cdcrouter/internal/config"
	"cdcrouter/internal/constants"
	"cdcrouter/internal/logger"
	"cdcrouter/internal/processor"
	"cdcrouter/internal/registry"
	"cdcrouter/pkg/cel"
	"cdcrouter/pkg/models"
)

// BuildRegistry registers the evaluation job processor plus one rule
// processor per configured source.
func BuildRegistry(cfg *config.Config, log logger.Logger) (*registry.Registry, error) {
	sm := cfg.Workflow.StateMachines
	regs := []registry.Registration{{
		Source: constants.EvaluationJobMetadataSource,
		Processor: processor.NewEvaluationJobProcessor(processor.EvaluationWorkflows{
			ModelEvaluation: sm.ModelEvaluation,
			RAGEvaluation:   sm.RAGEvaluation,
			AgentEvaluation: sm.AgentEvaluation,
		}, log),
	}}

	if len(cfg.Processors) > 0 {
		eval, err := cel.NewEvaluator()
		if err != nil {
			return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
		}

		for _, pc := range cfg.Processors {
			proc, err := processor.NewRuleProcessor(eval, pc, log)
			if err != nil {
				return nil, fmt.Errorf("processor %s: %w", pc.Source, err)
			}
			regs = append(regs, registry.Registration{
				Source:    models.LogicalSource(pc.Source),
				Processor: proc,
			})
		}
	}

	return registry.New(regs...)
}
