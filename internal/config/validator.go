package config

import (
	"errors"
	"fmt"
	"strings"

	"cdcrouter/internal/constants"
	"cdcrouter/pkg/cel"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateStatic checks everything both the lambda and serve commands need.
// Broker ingress settings are checked separately by ValidateServe.
func ValidateStatic(cfg *Config) error {
	var errs []error

	if err := validateLogging(cfg.Logging); err != nil {
		errs = append(errs, err)
	}

	if err := validateClient("workflow.client", cfg.Workflow.Client); err != nil {
		errs = append(errs, err)
	}

	if strings.TrimSpace(cfg.Workflow.StateMachines.ModelEvaluation) == "" {
		errs = append(errs, &ValidationError{
			Field:   "workflow.state_machines.model_evaluation",
			Message: "model evaluation state machine is required",
		})
	}

	if err := validateQuarantine(cfg.Quarantine); err != nil {
		errs = append(errs, err)
	}

	if err := validateIdempotency(cfg.Idempotency); err != nil {
		errs = append(errs, err)
	}

	if err := validateDispatch(cfg.Dispatch); err != nil {
		errs = append(errs, err)
	}

	if err := validateProcessors(cfg.Processors); err != nil {
		errs = append(errs, err)
	}

	if err := validateCircuitBreaker(cfg.CircuitBreaker); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ValidateServe adds the checks for the long-running Kafka ingress.
func ValidateServe(cfg *Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Server.Port),
		})
	}

	if err := validateKafka(cfg.Broker.Kafka); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateLogging(cfg LoggingConfig) error {
	switch cfg.Format {
	case "", "json", "console":
		return nil
	default:
		return &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown log format: %s (supported: json, console)", cfg.Format),
		}
	}
}

func validateClient(prefix string, cfg ClientConfig) error {
	if cfg.AttemptTimeout <= 0 {
		return &ValidationError{
			Field:   prefix + ".attempt_timeout",
			Message: "attempt timeout must be positive",
		}
	}

	if cfg.CallTimeout <= 0 {
		return &ValidationError{
			Field:   prefix + ".call_timeout",
			Message: "call timeout must be positive",
		}
	}

	if cfg.CallTimeout < cfg.AttemptTimeout {
		return &ValidationError{
			Field:   prefix + ".call_timeout",
			Message: "call timeout must be greater than or equal to attempt timeout",
		}
	}

	if cfg.MaxRetries < 0 {
		return &ValidationError{
			Field:   prefix + ".max_retries",
			Message: "max_retries must be non-negative",
		}
	}

	if cfg.RetryBaseDelay < 0 {
		return &ValidationError{
			Field:   prefix + ".retry_base_delay",
			Message: "retry_base_delay must be non-negative",
		}
	}

	if cfg.RetryMaxDelay > 0 && cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		return &ValidationError{
			Field:   prefix + ".retry_max_delay",
			Message: "retry_max_delay must be greater than or equal to retry_base_delay",
		}
	}

	return nil
}

func validateQuarantine(cfg QuarantineConfig) error {
	switch cfg.Type {
	case constants.QuarantineTypeSQS:
		if cfg.SQS.QueueURL == "" {
			return &ValidationError{
				Field:   "quarantine.sqs.queue_url",
				Message: "queue URL is required for sqs quarantine",
			}
		}
	case constants.QuarantineTypeKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return &ValidationError{
				Field:   "quarantine.kafka.brokers",
				Message: "at least one Kafka broker is required",
			}
		}
		if cfg.Kafka.Topic == "" {
			return &ValidationError{
				Field:   "quarantine.kafka.topic",
				Message: "quarantine topic is required",
			}
		}
	default:
		return &ValidationError{
			Field:   "quarantine.type",
			Message: fmt.Sprintf("unknown quarantine type: %s (supported: sqs, kafka)", cfg.Type),
		}
	}

	return validateClient("quarantine.client", cfg.Client)
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.InputTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.input_topic",
			Message: "input topic is required",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateIdempotency(cfg IdempotencyConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.Redis.Host == "" {
		return &ValidationError{
			Field:   "idempotency.redis.host",
			Message: "redis host is required when idempotency is enabled",
		}
	}

	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return &ValidationError{
			Field:   "idempotency.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Redis.Port),
		}
	}

	if cfg.TTL <= 0 {
		return &ValidationError{
			Field:   "idempotency.ttl",
			Message: "ttl must be positive",
		}
	}

	return nil
}

func validateDispatch(cfg DispatchConfig) error {
	switch cfg.OnMalformedIdentifier {
	case constants.OnMalformedQuarantine, constants.OnMalformedFail:
		return nil
	default:
		return &ValidationError{
			Field:   "dispatch.on_malformed_identifier",
			Message: fmt.Sprintf("unknown policy: %s (supported: quarantine, fail)", cfg.OnMalformedIdentifier),
		}
	}
}

func validateProcessors(procs []ProcessorConfig) error {
	if len(procs) == 0 {
		return nil
	}
	eval, err := cel.NewEvaluator()
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(procs))

	for i, p := range procs {
		field := fmt.Sprintf("processors[%d]", i)

		if strings.TrimSpace(p.Source) == "" {
			return &ValidationError{Field: field + ".source", Message: "source is required"}
		}
		if p.Source == constants.EvaluationJobMetadataSource {
			return &ValidationError{
				Field:   field + ".source",
				Message: fmt.Sprintf("source %s is served by the built-in evaluation job processor", p.Source),
			}
		}
		if _, dup := seen[p.Source]; dup {
			return &ValidationError{
				Field:   field + ".source",
				Message: fmt.Sprintf("duplicate source: %s", p.Source),
			}
		}
		seen[p.Source] = struct{}{}

		if len(p.Rules) == 0 {
			return &ValidationError{Field: field + ".rules", Message: "at least one rule is required"}
		}

		for j, r := range p.Rules {
			rf := fmt.Sprintf("%s.rules[%d]", field, j)
			if r.Name == "" {
				return &ValidationError{Field: rf + ".name", Message: "rule name is required"}
			}
			if r.Condition == "" {
				return &ValidationError{Field: rf + ".condition", Message: "condition is required"}
			}
			if err := eval.ValidateCondition(r.Condition); err != nil {
				return &ValidationError{Field: rf + ".condition", Message: err.Error()}
			}
			if r.Workflow == "" {
				return &ValidationError{Field: rf + ".workflow", Message: "workflow reference is required"}
			}
			switch r.Action {
			case "", "start", "stop":
			default:
				return &ValidationError{
					Field:   rf + ".action",
					Message: fmt.Sprintf("unknown action: %s (supported: start, stop)", r.Action),
				}
			}
		}
	}

	return nil
}

func validateCircuitBreaker(cfg CircuitBreakerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		return &ValidationError{
			Field:   "circuit_breaker.failure_ratio",
			Message: "failure_ratio must be in (0, 1]",
		}
	}

	if cfg.Timeout <= 0 {
		return &ValidationError{
			Field:   "circuit_breaker.timeout",
			Message: "timeout must be positive",
		}
	}

	return nil
}
