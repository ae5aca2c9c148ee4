package constants

import "time"

const (
	ServiceName = "cdc-router"
)

// Origin identifier layout: arn:aws:dynamodb:REGION:ACCOUNT:table/Name-stage-airport
const (
	OriginSegmentDelimiter  = ":"
	ResourceDelimiter       = "/"
	ResourceSuffixDelimiter = "-"
	OriginResourceSegment   = 5
	OriginMinSegments       = 6
)

const (
	EvaluationJobMetadataSource = "EvaluationJobMetadata"
)

// Workflow client defaults.
const (
	DefaultWorkflowAttemptTimeout = 2 * time.Second
	DefaultWorkflowCallTimeout    = 28 * time.Second
	DefaultWorkflowMaxRetries     = 5
	DefaultWorkflowRetryBaseDelay = 500 * time.Millisecond
	DefaultWorkflowRetryMaxDelay  = 20 * time.Second
)

const (
	MaxExecutionNameLength = 80
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	QuarantineTypeSQS   = "sqs"
	QuarantineTypeKafka = "kafka"
)

const (
	OnMalformedQuarantine = "quarantine"
	OnMalformedFail       = "fail"
)

const (
	CacheKeyPrefixExecution = "wfexec:"
	DefaultLedgerTTL        = 24 * time.Hour
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	InvocationSummaryFormat = "Processed DynamoDB stream records: %d"
)
