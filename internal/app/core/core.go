package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Apurer/medstore-checkout/internal/app/config"
	cartmemory "github.com/Apurer/medstore-checkout/internal/domains/cart/adapters/memory"
	cartobs "github.com/Apurer/medstore-checkout/internal/domains/cart/adapters/observability"
	cartpostgres "github.com/Apurer/medstore-checkout/internal/domains/cart/adapters/persistence/postgres"
	cartapp "github.com/Apurer/medstore-checkout/internal/domains/cart/application"
	cartports "github.com/Apurer/medstore-checkout/internal/domains/cart/ports"
	customermemory "github.com/Apurer/medstore-checkout/internal/domains/customers/adapters/memory"
	customerobs "github.com/Apurer/medstore-checkout/internal/domains/customers/adapters/observability"
	customerpostgres "github.com/Apurer/medstore-checkout/internal/domains/customers/adapters/persistence/postgres"
	customerapp "github.com/Apurer/medstore-checkout/internal/domains/customers/application"
	customerports "github.com/Apurer/medstore-checkout/internal/domains/customers/ports"
	inventorymemory "github.com/Apurer/medstore-checkout/internal/domains/inventory/adapters/memory"
	inventoryobs "github.com/Apurer/medstore-checkout/internal/domains/inventory/adapters/observability"
	inventorypostgres "github.com/Apurer/medstore-checkout/internal/domains/inventory/adapters/persistence/postgres"
	inventoryapp "github.com/Apurer/medstore-checkout/internal/domains/inventory/application"
	inventoryports "github.com/Apurer/medstore-checkout/internal/domains/inventory/ports"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/addressbook"
	ordermemory "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/memory"
	orderobs "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/observability"
	orderpostgres "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/persistence/postgres"
	orderredis "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/redis"
	ordersapp "github.com/Apurer/medstore-checkout/internal/domains/orders/application"
	orderports "github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
	"github.com/Apurer/medstore-checkout/internal/domains/payments/adapters/fake"
	paymentobs "github.com/Apurer/medstore-checkout/internal/domains/payments/adapters/observability"
	"github.com/Apurer/medstore-checkout/internal/domains/payments/adapters/razorpay"
	paymentports "github.com/Apurer/medstore-checkout/internal/domains/payments/ports"
	"github.com/Apurer/medstore-checkout/internal/platform/migrations"
	platformobservability "github.com/Apurer/medstore-checkout/internal/platform/observability"
	platformpostgres "github.com/Apurer/medstore-checkout/internal/platform/postgres"
	platformredis "github.com/Apurer/medstore-checkout/internal/platform/redis"
	"github.com/Apurer/medstore-checkout/internal/platform/sqlite"
)

// Core is the wired application: decorated services plus the shared infrastructure handles the
// processes need for their own loops.
type Core struct {
	Inventory inventoryports.Service
	Carts     cartports.Service
	Customers customerports.Service
	Orders    orderports.Service
	Outbox    orderports.OutboxReader
	// DB is nil for the memory driver.
	DB *gorm.DB
	// Redis is nil when REDIS_ADDR is unset.
	Redis *rd.Client

	cleanups []func()
}

// Ping reports whether the database answers. It is a no-op for the memory driver.
func (c *Core) Ping(ctx context.Context) error {
	if c.DB == nil {
		return nil
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases connections in reverse order of acquisition.
func (c *Core) Close() {
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		c.cleanups[i]()
	}
}

type stores struct {
	ledger      inventoryports.Ledger
	carts       cartports.Repository
	customers   customerports.Repository
	orders      orderports.Repository
	outbox      orderports.OutboxReader
	idempotency orderports.IdempotencyStore
	uow         orderports.UnitOfWork
}

// Build wires every bounded context against the configured database driver.
func Build(ctx context.Context, cfg config.Config, instruments *platformobservability.Instruments) (*Core, error) {
	logger := instruments.Logger
	core := &Core{}
	ok := false
	defer func() {
		if !ok {
			core.Close()
		}
	}()

	st, err := core.openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var guard orderports.CallbackGuard = ordermemory.NewCallbackGuard()
	if cfg.RedisAddr != "" {
		client, err := platformredis.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, callback guard and rate limiting stay process-local", slog.String("error", err.Error()))
		} else {
			core.Redis = client
			core.cleanups = append(core.cleanups, func() { _ = client.Close() })
			guard = orderredis.NewCallbackGuard(client)
		}
	}

	gateway, err := buildGateway(cfg, logger)
	if err != nil {
		return nil, err
	}
	gateway = paymentobs.New(gateway,
		paymentobs.WithLogger(logger),
		paymentobs.WithTracer(instruments.Tracer("internal.payments.gateway")),
		paymentobs.WithMeter(instruments.Meter("internal.payments.gateway")),
	)

	core.Inventory = inventoryobs.New(inventoryapp.NewService(st.ledger),
		inventoryobs.WithLogger(logger),
		inventoryobs.WithTracer(instruments.Tracer("internal.inventory.application")),
		inventoryobs.WithMeter(instruments.Meter("internal.inventory.application")),
	)
	core.Carts = cartobs.New(cartapp.NewService(st.carts, st.ledger, cfg.Orders().Delivery),
		cartobs.WithLogger(logger),
		cartobs.WithTracer(instruments.Tracer("internal.cart.application")),
		cartobs.WithMeter(instruments.Meter("internal.cart.application")),
	)
	core.Customers = customerobs.New(customerapp.NewService(st.customers),
		customerobs.WithLogger(logger),
		customerobs.WithTracer(instruments.Tracer("internal.customers.application")),
		customerobs.WithMeter(instruments.Meter("internal.customers.application")),
	)

	engine, err := ordersapp.NewService(cfg.Orders(), ordersapp.Dependencies{
		UnitOfWork:  st.uow,
		Orders:      st.orders,
		Idempotency: st.idempotency,
		Gateway:     gateway,
		Addresses:   addressbook.NewCustomers(st.customers),
	}, ordersapp.WithCallbackGuard(guard))
	if err != nil {
		return nil, err
	}
	core.Orders = orderobs.New(engine,
		orderobs.WithLogger(logger),
		orderobs.WithTracer(instruments.Tracer("internal.orders.application")),
		orderobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	core.Outbox = st.outbox
	ok = true
	return core, nil
}

func (c *Core) openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	var (
		db      *gorm.DB
		cleanup func()
		err     error
	)
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		db, cleanup, err = platformpostgres.Open(ctx, cfg.PostgresDSN, logger)
	case config.DriverSQLite:
		db, cleanup, err = sqlite.Open(cfg.SQLitePath)
	case config.DriverMemory:
		logger.Warn("DATABASE_DRIVER=memory, state is lost on exit")
		return memoryStores(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DatabaseDriver, err)
	}
	c.cleanups = append(c.cleanups, cleanup)
	c.DB = db
	if err := migrations.Run(db); err != nil {
		return nil, fmt.Errorf("migrate %s database: %w", cfg.DatabaseDriver, err)
	}
	logger.Info("database ready", slog.String("driver", cfg.DatabaseDriver))
	return &stores{
		ledger:      inventorypostgres.NewLedger(db),
		carts:       cartpostgres.NewRepository(db),
		customers:   customerpostgres.NewRepository(db),
		orders:      orderpostgres.NewRepository(db),
		outbox:      orderpostgres.NewOutbox(db),
		idempotency: orderpostgres.NewIdempotencyStore(db),
		uow:         orderpostgres.NewUnitOfWork(db),
	}, nil
}

func memoryStores() *stores {
	ledger := inventorymemory.NewLedger()
	carts := cartmemory.NewRepository()
	orders := ordermemory.NewRepository()
	outbox := ordermemory.NewOutbox()
	idempotency := ordermemory.NewIdempotencyStore()
	return &stores{
		ledger:      ledger,
		carts:       carts,
		customers:   customermemory.NewRepository(),
		orders:      orders,
		outbox:      outbox,
		idempotency: idempotency,
		uow:         ordermemory.NewUnitOfWork(orders, ledger, carts, outbox, idempotency),
	}
}

func buildGateway(cfg config.Config, logger *slog.Logger) (paymentports.Gateway, error) {
	if cfg.GatewayConfigured() {
		return razorpay.New(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	}
	if cfg.Environment == "production" {
		return nil, errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required in production")
	}
	logger.Warn("Razorpay credentials not set, using the in-process gateway")
	return fake.New(), nil
}
