package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/redis/go-redis/v9"

	"cdcrouter/internal/awsclient"
	"cdcrouter/internal/config"
	"cdcrouter/internal/dispatch"
	"cdcrouter/internal/logger"
	"cdcrouter/internal/quarantine"
	"cdcrouter/internal/registry"
	"cdcrouter/internal/resolver"
	"cdcrouter/internal/workflow"
	"cdcrouter/pkg/tracing"
)

// Base holds the dependencies both the lambda and serve commands share.
type Base struct {
	Config     *config.Config
	Logger     logger.Logger
	AWS        aws.Config
	Redis      *redis.Client
	Registry   *registry.Registry
	Engine     workflow.Engine
	Breaker    *workflow.CircuitBreakerEngine
	Forwarder  quarantine.Forwarder
	Controller *dispatch.Controller

	tracerProvider *tracing.TracerProvider
	dbConnector    *DatabaseConnector
	closeForwarder func() error
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config:      cfg,
		Logger:      log,
		dbConnector: NewDatabaseConnector(cfg, log),
	}
}

// Initialize loads AWS configuration and builds the dispatch pipeline.
func (b *Base) Initialize(ctx context.Context) error {
	awsCfg, err := awsclient.LoadConfig(ctx, b.Config.AWS)
	if err != nil {
		return err
	}
	b.AWS = awsCfg

	tp, err := tracing.Init(b.Config.Tracing, b.Config.Service.Name)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	b.tracerProvider = tp

	return b.InitPipeline(ctx)
}

// InitPipeline builds registry, engine, forwarder and controller from the
// already loaded AWS configuration.
func (b *Base) InitPipeline(ctx context.Context) error {
	reg, err := BuildRegistry(b.Config, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to build processor registry: %w", err)
	}
	b.Registry = reg

	if err := b.initEngine(ctx); err != nil {
		return fmt.Errorf("failed to initialize workflow engine: %w", err)
	}

	fwd, closeFn, err := quarantine.NewForwarder(b.AWS, b.Config, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize quarantine forwarder: %w", err)
	}
	b.Forwarder = fwd
	b.closeForwarder = closeFn

	b.Controller = dispatch.NewController(
		b.Registry,
		resolver.ARNResolver{},
		b.Engine,
		b.Forwarder,
		dispatch.Policy{OnMalformedIdentifier: b.Config.Dispatch.OnMalformedIdentifier},
		b.Logger,
	)

	b.Logger.Infow("Dispatch pipeline ready",
		"sources", b.Registry.Sources(),
		"quarantine", b.Config.Quarantine.Type,
		"idempotency", b.Config.Idempotency.Enabled,
		"circuit_breaker", b.Config.CircuitBreaker.Enabled,
	)
	return nil
}

func (b *Base) initEngine(ctx context.Context) error {
	client := workflow.NewSFNClient(b.AWS, b.Config.AWS, b.Config.Workflow.Client)

	var engine workflow.Engine = workflow.NewSFNEngine(client, b.Config.Workflow.Client.CallTimeout, b.Logger)
	b.Breaker = workflow.NewCircuitBreakerEngine(engine, b.Config.CircuitBreaker)
	engine = b.Breaker

	if b.Config.Idempotency.Enabled {
		if b.Redis == nil {
			rdb, err := b.dbConnector.InitRedis(ctx)
			if err != nil {
				return err
			}
			b.Redis = rdb
		}
		engine = workflow.NewLedgerEngine(engine, workflow.NewRedisLedger(b.Redis), b.Config.Idempotency.TTL, b.Logger)
	}

	b.Engine = engine
	return nil
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if b.closeForwarder != nil {
		if err := b.closeForwarder(); err != nil {
			errs = append(errs, fmt.Errorf("quarantine forwarder close error: %w", err))
		}
	}

	if b.tracerProvider != nil {
		if err := b.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	errs = append(errs, b.dbConnector.ShutdownDatabases(b.Redis)...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
