package config

import (
	"time"
)

type Config struct {
	Service        ServiceConfig        `mapstructure:"service"`
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	AWS            AWSConfig            `mapstructure:"aws"`
	Workflow       WorkflowConfig       `mapstructure:"workflow"`
	Quarantine     QuarantineConfig     `mapstructure:"quarantine"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Idempotency    IdempotencyConfig    `mapstructure:"idempotency"`
	Dispatch       DispatchConfig       `mapstructure:"dispatch"`
	Processors     []ProcessorConfig    `mapstructure:"processors"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ServiceConfig struct {
	Name string `mapstructure:"name"`
}

// ServerConfig is only used by the long-running serve command for /health and
// /metrics.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// ClientConfig is the bounded-retry policy owned by an outbound client.
type ClientConfig struct {
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
}

type WorkflowConfig struct {
	Client        ClientConfig        `mapstructure:"client"`
	StateMachines StateMachinesConfig `mapstructure:"state_machines"`
}

type StateMachinesConfig struct {
	ModelEvaluation string `mapstructure:"model_evaluation"`
	RAGEvaluation   string `mapstructure:"rag_evaluation"`
	AgentEvaluation string `mapstructure:"agent_evaluation"`
}

type QuarantineConfig struct {
	Type   string                `mapstructure:"type"`
	SQS    SQSConfig             `mapstructure:"sqs"`
	Kafka  QuarantineKafkaConfig `mapstructure:"kafka"`
	Client ClientConfig          `mapstructure:"client"`
}

type SQSConfig struct {
	QueueURL string `mapstructure:"queue_url"`
}

type QuarantineKafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type BrokerConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers    []string    `mapstructure:"brokers"`
	GroupID    string      `mapstructure:"group_id"`
	InputTopic string      `mapstructure:"input_topic"`
	Retry      RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type IdempotencyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DispatchConfig struct {
	OnMalformedIdentifier string `mapstructure:"on_malformed_identifier"` // "quarantine" (default) or "fail"
}

// ProcessorConfig registers a rule-driven processor for one logical source.
type ProcessorConfig struct {
	Source string       `mapstructure:"source"`
	Rules  []RuleConfig `mapstructure:"rules"`
}

type RuleConfig struct {
	Name       string   `mapstructure:"name"`
	Condition  string   `mapstructure:"condition"`
	Action     string   `mapstructure:"action"`
	Workflow   string   `mapstructure:"workflow"`
	NameFields []string `mapstructure:"name_fields"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
