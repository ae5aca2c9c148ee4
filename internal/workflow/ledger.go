package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cdcrouter/internal/constants"
	"cdcrouter/internal/logger"
	"cdcrouter/pkg/metrics"
	"cdcrouter/pkg/models"
)

// Ledger remembers submitted idempotency keys across invocations.
type Ledger interface {
	Seen(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, key, executionARN string, ttl time.Duration) error
}

type RedisLedger struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLedger(client redis.UniversalClient) *RedisLedger {
	return &RedisLedger{client: client, prefix: constants.CacheKeyPrefixExecution}
}

func (l *RedisLedger) key(k string) string {
	return l.prefix + k
}

func (l *RedisLedger) Seen(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis EXISTS failed: %w", err)
	}
	return n > 0, nil
}

func (l *RedisLedger) Record(ctx context.Context, key, executionARN string, ttl time.Duration) error {
	if err := l.client.SetNX(ctx, l.key(key), executionARN, ttl).Err(); err != nil {
		return fmt.Errorf("redis SetNX failed: %w", err)
	}
	return nil
}

// LedgerEngine skips submissions the ledger has already recorded and records
// every definitive success. Ledger errors are logged and never fail a
// submission.
type LedgerEngine struct {
	engine Engine
	ledger Ledger
	ttl    time.Duration
	logger logger.Logger
}

func NewLedgerEngine(engine Engine, ledger Ledger, ttl time.Duration, log logger.Logger) *LedgerEngine {
	if ttl <= 0 {
		ttl = constants.DefaultLedgerTTL
	}
	return &LedgerEngine{engine: engine, ledger: ledger, ttl: ttl, logger: log}
}

func (e *LedgerEngine) Submit(ctx context.Context, req models.TriggerRequest) (Result, error) {
	key := req.IdempotencyKey()

	seen, err := e.ledger.Seen(ctx, key)
	switch {
	case err != nil:
		metrics.IncLedgerLookup("error")
		e.logger.WarnwCtx(ctx, "Execution ledger lookup failed, submitting anyway",
			"key", key,
			"error", err,
		)
	case seen:
		metrics.IncLedgerLookup("hit")
		return Result{ExecutionARN: ExecutionARN(req.WorkflowRef, req.ExecutionName), Duplicate: true}, nil
	default:
		metrics.IncLedgerLookup("miss")
	}

	res, err := e.engine.Submit(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if err := e.ledger.Record(ctx, key, res.ExecutionARN, e.ttl); err != nil {
		e.logger.WarnwCtx(ctx, "Failed to record execution in ledger",
			"key", key,
			"error", err,
		)
	}

	return res, nil
}
