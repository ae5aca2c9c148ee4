package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdc_batches_total",
			Help: "Total number of change batches dispatched, by terminal path (count)",
		},
		[]string{"source", "path"},
	)

	RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdc_records_total",
			Help: "Total number of change records received (count)",
		},
		[]string{"source"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cdc_dispatch_duration_ms",
			Help:    "Duration of one batch dispatch in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"path"},
	)

	MixedSourceBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdc_mixed_source_batches_total",
			Help: "Total number of batches whose records did not share one origin (count)",
		},
		[]string{"source"},
	)

	RuleEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdc_rule_evaluations_total",
			Help: "Total number of processor rule evaluations (count)",
		},
		[]string{"source", "rule", "result"},
	)

	TriggersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_triggers_total",
			Help: "Total number of workflow trigger submissions (count)",
		},
		[]string{"action", "status"},
	)

	WorkflowCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workflow_call_duration_ms",
			Help:    "Duration of workflow engine calls including retries in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"action"},
	)

	LedgerLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_ledger_lookups_total",
			Help: "Total number of execution ledger lookups (count)",
		},
		[]string{"result"},
	)

	QuarantinedBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarantine_batches_total",
			Help: "Total number of batches forwarded to quarantine (count)",
		},
		[]string{"source", "class"},
	)

	QuarantineForwardFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quarantine_forward_failures_total",
			Help: "Total number of quarantine forwards that failed (count)",
		},
		[]string{"backend"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag (difference between latest offset and committed offset) (count)",
		},
		[]string{"service", "topic", "partition"},
	)

	KafkaReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_read_duration_ms",
			Help:    "Duration of reading messages from Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)
)

var (
	routerOnce  sync.Once
	brokerOnce  sync.Once
	breakerOnce sync.Once
)

// RegisterRouterMetrics registers the dispatch, workflow and quarantine
// collectors with the default registry. Safe to call more than once.
func RegisterRouterMetrics() {
	routerOnce.Do(func() {
		prometheus.MustRegister(BatchesTotal)
		prometheus.MustRegister(RecordsTotal)
		prometheus.MustRegister(DispatchDuration)
		prometheus.MustRegister(MixedSourceBatchesTotal)
		prometheus.MustRegister(RuleEvaluationsTotal)
		prometheus.MustRegister(TriggersTotal)
		prometheus.MustRegister(WorkflowCallDuration)
		prometheus.MustRegister(LedgerLookupsTotal)
		prometheus.MustRegister(QuarantinedBatchesTotal)
		prometheus.MustRegister(QuarantineForwardFailuresTotal)
	})
}

func RegisterBrokerMetrics() {
	brokerOnce.Do(func() {
		prometheus.MustRegister(RetryAttemptsTotal)
		prometheus.MustRegister(KafkaMessagesReadTotal)
		prometheus.MustRegister(KafkaMessagesWrittenTotal)
		prometheus.MustRegister(KafkaMessageSizeBytes)
		prometheus.MustRegister(KafkaConsumerLag)
		prometheus.MustRegister(KafkaReadDuration)
		prometheus.MustRegister(KafkaWriteDuration)
	})
}

func RegisterCircuitBreakerMetrics() {
	breakerOnce.Do(func() {
		prometheus.MustRegister(CircuitBreakerState)
		prometheus.MustRegister(CircuitBreakerRequests)
		prometheus.MustRegister(CircuitBreakerFailures)
	})
}

func IncBatch(source, path string) {
	BatchesTotal.WithLabelValues(source, path).Inc()
}

func AddRecords(source string, n int) {
	RecordsTotal.WithLabelValues(source).Add(float64(n))
}

func ObserveDispatchDuration(path string, duration time.Duration) {
	DispatchDuration.WithLabelValues(path).Observe(float64(duration.Milliseconds()))
}

func IncMixedSourceBatch(source string) {
	MixedSourceBatchesTotal.WithLabelValues(source).Inc()
}

func IncRuleEvaluation(source, rule, result string) {
	RuleEvaluationsTotal.WithLabelValues(source, rule, result).Inc()
}

func IncTrigger(action, status string) {
	TriggersTotal.WithLabelValues(action, status).Inc()
}

func ObserveWorkflowCallDuration(action string, duration time.Duration) {
	WorkflowCallDuration.WithLabelValues(action).Observe(float64(duration.Milliseconds()))
}

func IncLedgerLookup(result string) {
	LedgerLookupsTotal.WithLabelValues(result).Inc()
}

func IncQuarantined(source, class string) {
	QuarantinedBatchesTotal.WithLabelValues(source, class).Inc()
}

func IncQuarantineForwardFailure(backend string) {
	QuarantineForwardFailuresTotal.WithLabelValues(backend).Inc()
}

func IncRetryAttempt(service, topic string) {
	RetryAttemptsTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	KafkaConsumerLag.WithLabelValues(service, topic, fmt.Sprintf("%d", partition)).Set(float64(lag))
}

func ObserveKafkaReadDuration(service, topic string, duration time.Duration) {
	KafkaReadDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}
