package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"cdcrouter/internal/broker"
	"cdcrouter/internal/config"
	"cdcrouter/internal/constants"
	"cdcrouter/internal/ingress"
	"cdcrouter/internal/logger"
	"cdcrouter/pkg/bootstrap"
	"cdcrouter/pkg/health"
	"cdcrouter/pkg/logging"
	"cdcrouter/pkg/metrics"
)

type App struct {
	*bootstrap.Base
	lambdaHandler *ingress.LambdaHandler
	consumer      broker.Consumer
	server        *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base: bootstrap.NewBase(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	metrics.RegisterRouterMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.Base.Initialize(ctx); err != nil {
		return err
	}

	a.lambdaHandler = ingress.NewLambdaHandler(a.Controller, a.Forwarder, a.Logger)
	return nil
}

// InitServe prepares the Kafka ingress and the health/metrics server.
func (a *App) InitServe() error {
	metrics.RegisterBrokerMetrics()

	consumer, err := broker.NewConsumer(a.Config.Broker.Kafka, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	consumer.SetServiceName(a.Config.Service.Name)
	a.consumer = consumer

	a.initHTTPServer()
	return nil
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	if a.Redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.Redis))
	}
	if a.Breaker != nil && a.Config.CircuitBreaker.Enabled {
		healthRegistry.Register(health.NewFuncChecker("workflow_circuit_breaker", true, func(context.Context) error {
			if a.Breaker.State() == "open" {
				return fmt.Errorf("workflow circuit breaker is open")
			}
			return nil
		}))
	}

	mux.HandleFunc("/health", healthRegistry.Handler())
	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	handler := ingress.NewKafkaHandler(a.Controller, a.Forwarder, a.Logger)
	inputTopic := a.Config.Broker.Kafka.InputTopic
	g.Go(func() error {
		consumeCtx := logging.WithServiceName(gCtx, a.Config.Service.Name)
		err := a.consumer.Consume(consumeCtx, inputTopic, handler.Handle)
		if err != nil {
			return fmt.Errorf("consumer stopped: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, a.Config.Service.Name)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down CDC router")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.consumer != nil {
			if err := a.consumer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("consumer close error: %w", err))
			}
		}

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
