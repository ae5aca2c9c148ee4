package workflow

import (
	"context"
	stderrors "errors"
	"fmt"

	"cdcrouter/internal/config"
	"cdcrouter/pkg/circuitbreaker"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/models"
)

const breakerName = "workflow-engine"

// CircuitBreakerEngine stops calling the engine after repeated failures so a
// broken dependency fails batches fast into quarantine.
type CircuitBreakerEngine struct {
	engine Engine
	cb     *circuitbreaker.Wrapper
}

func NewCircuitBreakerEngine(engine Engine, cfg config.CircuitBreakerConfig) *CircuitBreakerEngine {
	if !cfg.Enabled {
		return &CircuitBreakerEngine{engine: engine}
	}

	cbConfig := circuitbreaker.DefaultConfig(breakerName)
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = circuitbreaker.RatioTrip(cfg.MinRequests, cfg.FailureRatio)
	}
	// Rejected input says nothing about engine health.
	cbConfig.IsSuccessful = func(err error) bool {
		return err == nil || errors.IsValidation(err) || stderrors.Is(err, context.Canceled)
	}

	return &CircuitBreakerEngine{
		engine: engine,
		cb:     circuitbreaker.NewWrapper(cbConfig),
	}
}

func (e *CircuitBreakerEngine) Submit(ctx context.Context, req models.TriggerRequest) (Result, error) {
	if e.cb == nil {
		return e.engine.Submit(ctx, req)
	}

	result, err := e.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return e.engine.Submit(ctx, req)
	})
	if err != nil {
		if e.cb.IsOpen() {
			return Result{}, errors.ErrServiceUnavailable.WithCause(
				fmt.Errorf("circuit breaker is open for %s: %w", breakerName, err))
		}
		return Result{}, err
	}

	res, ok := result.(Result)
	if !ok {
		return Result{}, fmt.Errorf("engine returned invalid result type")
	}
	return res, nil
}

func (e *CircuitBreakerEngine) State() string {
	if e.cb == nil {
		return "disabled"
	}
	return e.cb.State().String()
}
