package bootstrap

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdcrouter/internal/config"
	"cdcrouter/internal/logger"
	"cdcrouter/internal/workflow"
	"cdcrouter/pkg/models"
)

func testConfig() *config.Config {
	client := config.ClientConfig{
		AttemptTimeout: time.Second,
		CallTimeout:    2 * time.Second,
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
	}
	return &config.Config{
		Workflow: config.WorkflowConfig{
			Client: client,
			StateMachines: config.StateMachinesConfig{
				ModelEvaluation: "arn:aws:states:us-east-1:123456789012:stateMachine:model",
			},
		},
		Quarantine: config.QuarantineConfig{
			Type:   "sqs",
			SQS:    config.SQSConfig{QueueURL: "https://sqs.us-east-1.amazonaws.com/123456789012/dlq"},
			Client: client,
		},
		Dispatch: config.DispatchConfig{OnMalformedIdentifier: "quarantine"},
		Processors: []config.ProcessorConfig{{
			Source: "Orders",
			Rules: []config.RuleConfig{{
				Name:       "created",
				Condition:  `event == "INSERT"`,
				Workflow:   "arn:aws:states:us-east-1:123456789012:stateMachine:orders",
				NameFields: []string{"orderId"},
			}},
		}},
	}
}

func TestBuildRegistry(t *testing.T) {
	reg, err := BuildRegistry(testConfig(), logger.NopLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []models.LogicalSource{"EvaluationJobMetadata", "Orders"}, reg.Sources())
}

func TestBuildRegistryRejectsBadCondition(t *testing.T) {
	cfg := testConfig()
	cfg.Processors[0].Rules[0].Condition = "event =="

	_, err := BuildRegistry(cfg, logger.NopLogger())
	assert.Error(t, err)
}

func TestInitPipeline(t *testing.T) {
	base := NewBase(testConfig(), logger.NopLogger())
	base.AWS = aws.Config{Region: "us-east-1"}

	require.NoError(t, base.InitPipeline(context.Background()))
	assert.NotNil(t, base.Controller)
	assert.NotNil(t, base.Forwarder)
	assert.IsType(t, &workflow.CircuitBreakerEngine{}, base.Engine)

	assert.NoError(t, base.Shutdown(context.Background(), nil))
}

func TestInitPipelineWithLedger(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Idempotency = config.IdempotencyConfig{
		Enabled: true,
		TTL:     time.Hour,
		Redis:   config.RedisConfig{Host: mr.Host(), Port: port},
	}

	base := NewBase(cfg, logger.NopLogger())
	base.AWS = aws.Config{Region: "us-east-1"}

	require.NoError(t, base.InitPipeline(context.Background()))
	assert.IsType(t, &workflow.LedgerEngine{}, base.Engine)
	require.NotNil(t, base.Redis)

	assert.NoError(t, base.Shutdown(context.Background(), nil))
}

func TestInitRedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Idempotency.Redis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

	_, err := NewDatabaseConnector(cfg, logger.NopLogger()).InitRedis(context.Background())
	assert.Error(t, err)
}
