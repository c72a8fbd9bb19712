package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	inventorydomain "github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
	inventoryports "github.com/Apurer/medstore-checkout/internal/domains/inventory/ports"
)

const tracerName = "github.com/Apurer/medstore-checkout/internal/domains/inventory/adapters/observability/service"

// Service decorates the inventory service with tracing, logging, and metrics.
type Service struct {
	inner   inventoryports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core inventory service.
func New(inner inventoryports.Service, opts ...Option) inventoryports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) RegisterProduct(ctx context.Context, product *inventorydomain.Product) (*inventorydomain.Product, error) {
	var id int64
	if product != nil {
		id = product.ID
	}
	ctx, span := s.tracer.Start(ctx, "InventoryService.RegisterProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	result, err := s.inner.RegisterProduct(ctx, product)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to register product", slog.Int64("product.id", id))
	}
	s.logInfo(ctx, "product registered", slog.Int64("product.id", result.ID), slog.Int64("product.stock", result.Stock))
	return result, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*inventorydomain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.GetProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	result, err := s.inner.GetProduct(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load product", slog.Int64("product.id", id))
	}
	return result, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]*inventorydomain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.ListProducts")
	defer span.End()

	result, err := s.inner.ListProducts(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list products")
	}
	span.SetAttributes(attribute.Int("product.count", len(result)))
	return result, nil
}

func (s *Service) Restock(ctx context.Context, id int64, quantity int64) (*inventorydomain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.Restock",
		trace.WithAttributes(attribute.Int64("product.id", id), attribute.Int64("restock.quantity", quantity)))
	defer span.End()

	result, err := s.inner.Restock(ctx, id, quantity)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to restock product", slog.Int64("product.id", id))
	}
	s.metrics.recordRestocked(ctx, quantity)
	s.logInfo(ctx, "product restocked", slog.Int64("product.id", id), slog.Int64("product.stock", result.Stock))
	return result, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if s.logger != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	}
	return err
}

type serviceMetrics struct {
	unitsRestocked metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	unitsRestocked, _ := m.Int64Counter("inventory.service.units_restocked", metric.WithDescription("Units added through restock"))
	return serviceMetrics{unitsRestocked: unitsRestocked}
}

func (m serviceMetrics) recordRestocked(ctx context.Context, quantity int64) {
	if m.unitsRestocked != nil {
		m.unitsRestocked.Add(ctx, quantity)
	}
}

var _ inventoryports.Service = (*Service)(nil)
