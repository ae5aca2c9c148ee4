package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"cdcrouter/internal/constants"
)

// LoadConfig reads configFile (optional: Lambda deployments are configured
// through the environment only), applies env overrides and validates.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	setDefaults()

	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("service.name", constants.ServiceName)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("aws.region", "")
	viper.SetDefault("aws.endpoint", "")

	viper.SetDefault("workflow.client.attempt_timeout", constants.DefaultWorkflowAttemptTimeout)
	viper.SetDefault("workflow.client.call_timeout", constants.DefaultWorkflowCallTimeout)
	viper.SetDefault("workflow.client.max_retries", constants.DefaultWorkflowMaxRetries)
	viper.SetDefault("workflow.client.retry_base_delay", constants.DefaultWorkflowRetryBaseDelay)
	viper.SetDefault("workflow.client.retry_max_delay", constants.DefaultWorkflowRetryMaxDelay)
	viper.SetDefault("workflow.state_machines.model_evaluation", "")
	viper.SetDefault("workflow.state_machines.rag_evaluation", "")
	viper.SetDefault("workflow.state_machines.agent_evaluation", "")

	viper.SetDefault("quarantine.type", constants.QuarantineTypeSQS)
	viper.SetDefault("quarantine.sqs.queue_url", "")
	viper.SetDefault("quarantine.kafka.topic", "")
	viper.SetDefault("quarantine.client.attempt_timeout", constants.DefaultWorkflowAttemptTimeout)
	viper.SetDefault("quarantine.client.call_timeout", constants.DefaultWorkflowCallTimeout)
	viper.SetDefault("quarantine.client.max_retries", constants.DefaultWorkflowMaxRetries)
	viper.SetDefault("quarantine.client.retry_base_delay", constants.DefaultWorkflowRetryBaseDelay)
	viper.SetDefault("quarantine.client.retry_max_delay", constants.DefaultWorkflowRetryMaxDelay)

	viper.SetDefault("broker.kafka.group_id", constants.ServiceName)
	viper.SetDefault("broker.kafka.input_topic", "")
	viper.SetDefault("broker.kafka.retry.max_attempts", 3)
	viper.SetDefault("broker.kafka.retry.multiplier", 2.0)

	viper.SetDefault("idempotency.enabled", false)
	viper.SetDefault("idempotency.ttl", constants.DefaultLedgerTTL)
	viper.SetDefault("idempotency.redis.host", "")
	viper.SetDefault("idempotency.redis.port", 6379)

	viper.SetDefault("dispatch.on_malformed_identifier", constants.OnMalformedQuarantine)

	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("tracing.enabled", false)
}

func bindEnvVariables() {
	viper.BindEnv("aws.region", "AWS_REGION")
	viper.BindEnv("aws.endpoint", "AWS_ENDPOINT_URL")

	viper.BindEnv("workflow.state_machines.model_evaluation", "WORKFLOW_STATE_MACHINES_MODEL_EVALUATION")
	viper.BindEnv("workflow.state_machines.rag_evaluation", "WORKFLOW_STATE_MACHINES_RAG_EVALUATION")
	viper.BindEnv("workflow.state_machines.agent_evaluation", "WORKFLOW_STATE_MACHINES_AGENT_EVALUATION")

	viper.BindEnv("quarantine.type", "QUARANTINE_TYPE")
	viper.BindEnv("quarantine.sqs.queue_url", "QUARANTINE_SQS_QUEUE_URL", "DLQ_QUEUE_URL")
	viper.BindEnv("quarantine.kafka.topic", "QUARANTINE_KAFKA_TOPIC")

	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.input_topic", "BROKER_KAFKA_INPUT_TOPIC")

	viper.BindEnv("idempotency.enabled", "IDEMPOTENCY_ENABLED")
	viper.BindEnv("idempotency.redis.host", "IDEMPOTENCY_REDIS_HOST")
	viper.BindEnv("idempotency.redis.port", "IDEMPOTENCY_REDIS_PORT")
	viper.BindEnv("idempotency.redis.password", "IDEMPOTENCY_REDIS_PASSWORD")

	viper.BindEnv("dispatch.on_malformed_identifier", "DISPATCH_ON_MALFORMED_IDENTIFIER")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokers := splitList(viper.GetString("BROKER_KAFKA_BROKERS")); len(brokers) > 0 {
		cfg.Broker.Kafka.Brokers = brokers
	}

	if brokers := splitList(viper.GetString("QUARANTINE_KAFKA_BROKERS")); len(brokers) > 0 {
		cfg.Quarantine.Kafka.Brokers = brokers
	}

	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
