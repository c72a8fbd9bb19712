package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/medstore-checkout/internal/app/config"
	"github.com/Apurer/medstore-checkout/internal/app/core"
	orderworkflows "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/workflows"
	platformobservability "github.com/Apurer/medstore-checkout/internal/platform/observability"
	platformtemporal "github.com/Apurer/medstore-checkout/internal/platform/temporal"
	orderactivities "github.com/Apurer/medstore-checkout/internal/platform/temporal/activities/orders"
	temporalorders "github.com/Apurer/medstore-checkout/internal/platform/temporal/workflows/orders"
)

func main() {
	ctx := context.Background()
	const serviceName = "medstore-worker"
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, cfg.Telemetry(serviceName))
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	if cfg.DatabaseDriver == config.DriverMemory {
		logger.Warn("worker runs against an in-memory store it does not share with the API")
	}
	app, err := core.Build(ctx, cfg, instruments)
	if err != nil {
		logger.Error("failed to build application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()
	expiryActivities := orderactivities.NewActivities(app.Orders)

	temporalClient, err := platformtemporal.Dial(cfg.Temporal("temporal-worker"), instruments)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, temporalorders.OrderExpiryTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(temporalorders.OrderExpiryWorkflow, workflow.RegisterOptions{Name: temporalorders.OrderExpiryWorkflowName})
	w.RegisterActivityWithOptions(expiryActivities.ExpireStaleOrders, activity.RegisterOptions{Name: orderactivities.ExpireStaleOrdersActivityName})

	if err := orderworkflows.NewTemporalOrderWorkflows(temporalClient).ScheduleSweep(ctx, cfg.ExpirySweepCron); err != nil {
		logger.Error("failed to schedule expiry sweep", slog.String("cron", cfg.ExpirySweepCron), slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("worker listening", slog.String("taskQueue", temporalorders.OrderExpiryTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
