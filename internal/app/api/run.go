package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	medstoreserver "github.com/Apurer/medstore-checkout/go"

	"github.com/Apurer/medstore-checkout/internal/app/config"
	"github.com/Apurer/medstore-checkout/internal/app/core"
	orderevents "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/events"
	orderworkflows "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/workflows"
	orderports "github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
	platformkafka "github.com/Apurer/medstore-checkout/internal/platform/kafka"
	platformobservability "github.com/Apurer/medstore-checkout/internal/platform/observability"
	platformtemporal "github.com/Apurer/medstore-checkout/internal/platform/temporal"
	"github.com/Apurer/medstore-checkout/internal/shared/middleware"
)

const serviceName = "medstore-api"

// Run boots the checkout API with observability, stores, workflows and the outbox relay wired.
// It returns when ctx is cancelled and the server has drained.
func Run(ctx context.Context, cfg config.Config) error {
	instruments, shutdown, err := platformobservability.Init(ctx, cfg.Telemetry(serviceName))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	app, err := core.Build(ctx, cfg, instruments)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer app.Close()

	var workflows orderports.WorkflowOrchestrator = orderworkflows.NewInlineOrderWorkflows(app.Orders)
	if temporalClient, err := platformtemporal.Dial(cfg.Temporal("temporal-client"), instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, sweeping expired orders in-process", slog.String("error", err.Error()))
		stop, err := startLocalSweeper(app.Orders, cfg.ExpirySweepInterval, logger)
		if err != nil {
			return err
		}
		defer stop()
	} else {
		defer temporalClient.Close()
		workflows = orderworkflows.NewTemporalOrderWorkflows(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	relay, closeRelay := buildRelay(cfg, app.Outbox, logger)
	defer closeRelay()
	go relay.Run(relayCtx)

	opts := []medstoreserver.RouterOption{medstoreserver.WithRouterLogger(logger)}
	if app.Redis != nil && cfg.RateLimit > 0 {
		opts = append(opts, medstoreserver.WithRateLimiter(middleware.NewRedisLimiter(app.Redis, cfg.RateLimit, cfg.RateLimitWindow)))
	}
	handlers := medstoreserver.ApiHandleFunctions{
		CartAPI:     medstoreserver.NewCartAPI(app.Carts),
		CheckoutAPI: medstoreserver.NewCheckoutAPI(app.Orders),
		ProfileAPI:  medstoreserver.NewProfileAPI(app.Customers),
		AdminAPI:    medstoreserver.NewAdminAPI(app.Inventory, app.Orders, workflows),
		HealthAPI:   medstoreserver.NewHealthAPI(healthChecks(app)),
	}

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))
	router = medstoreserver.NewRouterWithGinEngine(router, handlers, opts...)

	server := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("medstore API listening", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("medstore API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down medstore API")
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(drainCtx)
}

func buildRelay(cfg config.Config, outbox orderports.OutboxReader, logger *slog.Logger) (*orderevents.Relay, func()) {
	var publisher orderports.EventPublisher = orderevents.NewLogPublisher(logger)
	closeFn := func() {}
	if cfg.KafkaEnabled() {
		writer := platformkafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = orderevents.NewKafkaPublisher(writer)
		closeFn = func() {
			if err := writer.Close(); err != nil {
				logger.Warn("failed to close kafka writer", slog.String("error", err.Error()))
			}
		}
		logger.Info("order events publish to kafka", slog.String("topic", cfg.KafkaTopic))
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events are only logged")
	}
	relay := orderevents.NewRelay(outbox, publisher,
		orderevents.WithRelayLogger(logger),
		orderevents.WithInterval(cfg.OutboxPollInterval),
	)
	return relay, closeFn
}

// startLocalSweeper expires stale orders on a timer when no Temporal worker is around to do it.
func startLocalSweeper(orders orderports.Service, every time.Duration, logger *slog.Logger) (func(), error) {
	c := cron.New()
	err := c.AddFunc("@every "+every.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), every)
		defer cancel()
		if _, err := orders.ExpireStale(ctx); err != nil {
			logger.Warn("in-process expiry sweep failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule expiry sweep: %w", err)
	}
	c.Start()
	return c.Stop, nil
}

func healthChecks(app *core.Core) map[string]medstoreserver.HealthCheck {
	checks := map[string]medstoreserver.HealthCheck{"database": app.Ping}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() }
	}
	return checks
}
