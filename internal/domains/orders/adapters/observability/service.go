package observability

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	inventorydomain "github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/application"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
)

const tracerName = "github.com/Apurer/medstore-checkout/internal/domains/orders/adapters/observability/service"

// Service decorates the reconciliation engine with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
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

// New wraps the core orders service.
func New(inner ports.Service, opts ...Option) ports.Service {
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

func (s *Service) Initiate(ctx context.Context, input types.InitiateInput) (*types.InitiateResult, error) {
	attrs := []attribute.KeyValue{attribute.Int64("user.id", input.UserID), attribute.Bool("checkout.registered_address", input.UseRegisteredAddress)}
	if input.CartItemID != nil {
		attrs = append(attrs, attribute.Int64("cart_item.id", *input.CartItemID))
	}
	ctx, span := s.tracer.Start(ctx, "OrderService.Initiate", trace.WithAttributes(attrs...))
	defer span.End()

	res, err := s.inner.Initiate(ctx, input)
	if err != nil {
		s.metrics.recordInitiateFailure(ctx, classify(err))
		return nil, s.handleError(ctx, span, err, "checkout failed", slog.Int64("user.id", input.UserID))
	}
	span.SetAttributes(
		attribute.Int64("order.id", res.Order.ID),
		attribute.String("order.number", res.Order.Number),
		attribute.String("gateway.order_id", res.GatewayOrderID),
		attribute.Bool("idempotency.replayed", res.Replayed),
	)
	if res.Replayed {
		s.logInfo(ctx, "checkout replayed", slog.Int64("order.id", res.Order.ID), slog.String("order.number", res.Order.Number))
		return res, nil
	}
	s.metrics.recordOutcome(ctx, "initiate", domain.OutcomeCreated)
	s.logInfo(ctx, "order created",
		slog.Int64("order.id", res.Order.ID),
		slog.String("order.number", res.Order.Number),
		slog.String("gateway.order_id", res.GatewayOrderID),
		slog.String("order.amount", res.Order.Amount.StringFixed(2)),
	)
	return res, nil
}

func (s *Service) Verify(ctx context.Context, input types.VerifyInput) (*types.VerifyResult, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Verify", trace.WithAttributes(
		attribute.Int64("user.id", input.UserID),
		attribute.String("gateway.order_id", input.GatewayOrderID),
		attribute.String("gateway.payment_id", input.GatewayPaymentID),
	))
	defer span.End()

	res, err := s.inner.Verify(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "payment verification failed", slog.String("gateway.order_id", input.GatewayOrderID))
	}
	s.metrics.recordOutcome(ctx, "verify", res.Outcome)
	span.SetAttributes(attribute.String("order.outcome", string(res.Outcome)), attribute.Int64("order.id", res.Order.ID))
	attrs := []slog.Attr{
		slog.Int64("order.id", res.Order.ID),
		slog.String("order.number", res.Order.Number),
		slog.String("order.outcome", string(res.Outcome)),
	}
	switch {
	case res.Reason == application.ReasonSignatureInvalid:
		s.logWarn(ctx, "payment callback signature rejected", append(attrs, slog.String("gateway.order_id", input.GatewayOrderID))...)
	case res.Outcome == domain.OutcomeStale:
		s.logWarn(ctx, "stale payment callback ignored", append(attrs, slog.String("order.status", string(res.Order.Status)))...)
	case res.Reason != "":
		s.logInfo(ctx, "payment not completed", append(attrs, slog.String("order.reason", res.Reason))...)
	default:
		s.logInfo(ctx, "payment verified", attrs...)
	}
	return res, nil
}

func (s *Service) Cancel(ctx context.Context, input types.CancelInput) (*types.CancelResult, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(
		attribute.Int64("user.id", input.UserID), attribute.String("gateway.order_id", input.GatewayOrderID)))
	defer span.End()

	res, err := s.inner.Cancel(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to cancel order", slog.String("gateway.order_id", input.GatewayOrderID))
	}
	s.metrics.recordOutcome(ctx, "cancel", res.Outcome)
	s.logInfo(ctx, "order cancel handled", slog.Int64("order.id", res.Order.ID), slog.String("order.outcome", string(res.Outcome)))
	return res, nil
}

func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ExpireStale")
	defer span.End()

	n, err := s.inner.ExpireStale(ctx)
	s.metrics.recordExpired(ctx, n)
	span.SetAttributes(attribute.Int("orders.expired", n))
	if err != nil {
		return n, s.handleError(ctx, span, err, "expiry sweep finished with errors", slog.Int("orders.expired", n))
	}
	if n > 0 {
		s.logInfo(ctx, "expired stale orders", slog.Int("orders.expired", n))
	}
	return n, nil
}

func (s *Service) GetOrder(ctx context.Context, userID int64, ref string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder", trace.WithAttributes(attribute.Int64("user.id", userID), attribute.String("order.ref", ref)))
	defer span.End()

	order, err := s.inner.GetOrder(ctx, userID, ref)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("order.ref", ref))
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	orders, err := s.inner.ListOrders(ctx, userID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders", slog.Int64("user.id", userID))
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}

func (s *Service) AdvanceDelivery(ctx context.Context, ref string, status domain.DeliveryStatus) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.AdvanceDelivery", trace.WithAttributes(
		attribute.String("order.ref", ref), attribute.String("order.delivery_status", string(status))))
	defer span.End()

	order, err := s.inner.AdvanceDelivery(ctx, ref, status)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to advance delivery", slog.String("order.ref", ref))
	}
	s.logInfo(ctx, "delivery status updated", slog.Int64("order.id", order.ID), slog.String("order.delivery_status", string(order.DeliveryStatus)))
	return order, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logWarn(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

// handleError records the failure on the span. Rejections the caller caused are logged at warn,
// everything else at error.
func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if s.logger != nil {
		level := slog.LevelError
		if classify(err) != "internal" {
			level = slog.LevelWarn
		}
		attrs = append(attrs, slog.String("error", err.Error()))
		s.logger.LogAttrs(ctx, level, msg, attrs...)
	}
	return err
}

func classify(err error) string {
	switch {
	case errors.Is(err, inventorydomain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, application.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, application.ErrAddressRequired):
		return "address_required"
	case errors.Is(err, application.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ports.ErrIdempotencyConflict):
		return "idempotency_conflict"
	case errors.Is(err, ports.ErrNotFound):
		return "not_found"
	case errors.Is(err, application.ErrCallbackInFlight):
		return "callback_in_flight"
	default:
		return "internal"
	}
}

type serviceMetrics struct {
	outcomes        metric.Int64Counter
	initiateFailure metric.Int64Counter
	expired         metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	outcomes, _ := m.Int64Counter("orders.service.outcomes", metric.WithDescription("Reconciliation outcomes by operation"))
	initiateFailure, _ := m.Int64Counter("orders.service.initiate_failures", metric.WithDescription("Checkouts rejected or failed, by reason"))
	expired, _ := m.Int64Counter("orders.service.expired", metric.WithDescription("Orders failed by the expiry sweep"))
	return serviceMetrics{outcomes: outcomes, initiateFailure: initiateFailure, expired: expired}
}

func (m serviceMetrics) recordOutcome(ctx context.Context, op string, outcome domain.Outcome) {
	if m.outcomes != nil {
		m.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op), attribute.String("outcome", string(outcome))))
	}
}

func (m serviceMetrics) recordInitiateFailure(ctx context.Context, reason string) {
	if m.initiateFailure != nil {
		m.initiateFailure.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func (m serviceMetrics) recordExpired(ctx context.Context, n int) {
	if m.expired != nil && n > 0 {
		m.expired.Add(ctx, int64(n))
	}
}

var _ ports.Service = (*Service)(nil)
