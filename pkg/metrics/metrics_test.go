package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterRouterMetrics()
		RegisterRouterMetrics()
		RegisterBrokerMetrics()
		RegisterBrokerMetrics()
		RegisterCircuitBreakerMetrics()
		RegisterCircuitBreakerMetrics()
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(BatchesTotal.WithLabelValues("Orders", "quarantined"))
	IncBatch("Orders", "quarantined")
	assert.Equal(t, before+1, testutil.ToFloat64(BatchesTotal.WithLabelValues("Orders", "quarantined")))

	beforeRecords := testutil.ToFloat64(RecordsTotal.WithLabelValues("Orders"))
	AddRecords("Orders", 3)
	assert.Equal(t, beforeRecords+3, testutil.ToFloat64(RecordsTotal.WithLabelValues("Orders")))
}

func TestObserveDurationDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		ObserveDispatchDuration("completed", 15*time.Millisecond)
		ObserveWorkflowCallDuration("start", time.Second)
		SetKafkaConsumerLag("cdc-router", "cdc.events", 2, 10)
	})
}
