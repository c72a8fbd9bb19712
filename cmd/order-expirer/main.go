package main

import (
	"context"
	"log"
	"time"

	"github.com/Apurer/medstore-checkout/internal/app/config"
	"github.com/Apurer/medstore-checkout/internal/app/core"
	platformobservability "github.com/Apurer/medstore-checkout/internal/platform/observability"
)

// order-expirer runs a single expiry sweep, for cron jobs in deployments without Temporal.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.DatabaseDriver == config.DriverMemory {
		log.Fatal("DATABASE_DRIVER=memory has nothing to expire; use postgres or sqlite")
	}
	instruments, shutdown, err := platformobservability.Init(ctx, cfg.Telemetry("medstore-order-expirer"))
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	app, err := core.Build(ctx, cfg, instruments)
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}
	defer app.Close()

	n, err := app.Orders.ExpireStale(ctx)
	if err != nil {
		log.Fatalf("expiry sweep failed after %d orders: %v", n, err)
	}
	log.Printf("expiry sweep completed, %d orders expired", n)
}
