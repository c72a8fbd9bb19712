package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	cartdomain "github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
	cartports "github.com/Apurer/medstore-checkout/internal/domains/cart/ports"
)

const tracerName = "github.com/Apurer/medstore-checkout/internal/domains/cart/adapters/observability/service"

// Service decorates the cart service with tracing, logging, and metrics.
type Service struct {
	inner   cartports.Service
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

// New wraps the core cart service.
func New(inner cartports.Service, opts ...Option) cartports.Service {
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

func (s *Service) AddItem(ctx context.Context, userID, productID, quantity int64) (*cartdomain.LineItem, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.AddItem", trace.WithAttributes(
		attribute.Int64("user.id", userID), attribute.Int64("product.id", productID), attribute.Int64("cart.quantity", quantity)))
	defer span.End()

	item, err := s.inner.AddItem(ctx, userID, productID, quantity)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to add cart item", slog.Int64("user.id", userID), slog.Int64("product.id", productID))
	}
	s.metrics.recordAdded(ctx)
	s.logInfo(ctx, "cart item added", slog.Int64("user.id", userID), slog.Int64("cart_item.id", item.ID), slog.Int64("cart.quantity", item.Quantity))
	return item, nil
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID, quantity int64) (*cartdomain.LineItem, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.UpdateQuantity", trace.WithAttributes(
		attribute.Int64("user.id", userID), attribute.Int64("cart_item.id", itemID)))
	defer span.End()

	item, err := s.inner.UpdateQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update cart item", slog.Int64("cart_item.id", itemID))
	}
	return item, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) error {
	ctx, span := s.tracer.Start(ctx, "CartService.RemoveItem", trace.WithAttributes(
		attribute.Int64("user.id", userID), attribute.Int64("cart_item.id", itemID)))
	defer span.End()

	if err := s.inner.RemoveItem(ctx, userID, itemID); err != nil {
		return s.handleError(ctx, span, err, "failed to remove cart item", slog.Int64("cart_item.id", itemID))
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, userID int64) error {
	ctx, span := s.tracer.Start(ctx, "CartService.Clear", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	if err := s.inner.Clear(ctx, userID); err != nil {
		return s.handleError(ctx, span, err, "failed to clear cart", slog.Int64("user.id", userID))
	}
	s.logInfo(ctx, "cart cleared", slog.Int64("user.id", userID))
	return nil
}

func (s *Service) Preview(ctx context.Context, userID int64, cartItemID *int64) (cartdomain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Preview", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	snap, err := s.inner.Preview(ctx, userID, cartItemID)
	if err != nil {
		return cartdomain.Snapshot{}, s.handleError(ctx, span, err, "failed to price cart", slog.Int64("user.id", userID))
	}
	span.SetAttributes(
		attribute.Int("cart.lines", len(snap.Lines)),
		attribute.String("cart.payable", snap.Payable.StringFixed(2)),
	)
	return snap, nil
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
	itemsAdded metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	itemsAdded, _ := m.Int64Counter("cart.service.items_added", metric.WithDescription("Number of add-to-cart calls that succeeded"))
	return serviceMetrics{itemsAdded: itemsAdded}
}

func (m serviceMetrics) recordAdded(ctx context.Context) {
	if m.itemsAdded != nil {
		m.itemsAdded.Add(ctx, 1)
	}
}

var _ cartports.Service = (*Service)(nil)
