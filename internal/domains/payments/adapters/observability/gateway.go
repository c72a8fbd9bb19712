package observability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	paymentsdomain "github.com/Apurer/medstore-checkout/internal/domains/payments/domain"
	paymentsports "github.com/Apurer/medstore-checkout/internal/domains/payments/ports"
)

const tracerName = "github.com/Apurer/medstore-checkout/internal/domains/payments/adapters/observability/gateway"

// Gateway decorates a payment gateway with tracing, logging, and call metrics.
type Gateway struct {
	inner   paymentsports.Gateway
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics gatewayMetrics
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(g *Gateway) {
		g.metrics = newGatewayMetrics(m)
	}
}

func New(inner paymentsports.Gateway, opts ...Option) paymentsports.Gateway {
	g := &Gateway{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		metrics: newGatewayMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.tracer == nil {
		g.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return g
}

func (g *Gateway) PublicKey() string { return g.inner.PublicKey() }

func (g *Gateway) CreateOrder(ctx context.Context, req paymentsdomain.CreateOrderRequest) (paymentsdomain.RemoteOrder, error) {
	ctx, span := g.tracer.Start(ctx, "PaymentGateway.CreateOrder", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.Int64("payment.amount_minor", req.AmountMinor),
		attribute.String("payment.currency", req.Currency),
		attribute.String("payment.receipt", req.Receipt),
	))
	defer span.End()

	start := time.Now()
	order, err := g.inner.CreateOrder(ctx, req)
	g.metrics.recordCall(ctx, "create_order", start, err)
	if err != nil {
		return paymentsdomain.RemoteOrder{}, g.handleError(ctx, span, err, "gateway order creation failed", slog.String("payment.receipt", req.Receipt))
	}
	span.SetAttributes(attribute.String("payment.gateway_order_id", order.ID))
	g.logInfo(ctx, "gateway order created", slog.String("payment.gateway_order_id", order.ID), slog.Int64("payment.amount_minor", order.Amount))
	return order, nil
}

func (g *Gateway) VerifySignature(orderID, paymentID, signature string) error {
	err := g.inner.VerifySignature(orderID, paymentID, signature)
	if err != nil && g.logger != nil {
		g.logger.LogAttrs(context.Background(), slog.LevelWarn, "payment signature rejected",
			slog.String("payment.gateway_order_id", orderID),
			slog.String("payment.gateway_payment_id", paymentID),
		)
	}
	return err
}

func (g *Gateway) FetchPayment(ctx context.Context, paymentID string) (paymentsdomain.PaymentRecord, error) {
	ctx, span := g.tracer.Start(ctx, "PaymentGateway.FetchPayment", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("payment.gateway_payment_id", paymentID),
	))
	defer span.End()

	start := time.Now()
	p, err := g.inner.FetchPayment(ctx, paymentID)
	g.metrics.recordCall(ctx, "fetch_payment", start, err)
	if err != nil {
		return paymentsdomain.PaymentRecord{}, g.handleError(ctx, span, err, "gateway payment fetch failed", slog.String("payment.gateway_payment_id", paymentID))
	}
	span.SetAttributes(attribute.String("payment.status", p.Status))
	return p, nil
}

func (g *Gateway) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if g.logger == nil {
		return
	}
	g.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (g *Gateway) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if g.logger != nil {
		attrs = append(attrs,
			slog.String("error", err.Error()),
			slog.Bool("retryable", errors.Is(err, paymentsports.ErrGatewayUnavailable)),
		)
		g.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	}
	return err
}

type gatewayMetrics struct {
	calls    metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

func newGatewayMetrics(m metric.Meter) gatewayMetrics {
	if m == nil {
		return gatewayMetrics{}
	}
	calls, _ := m.Int64Counter("payments.gateway.calls", metric.WithDescription("Gateway API calls"))
	failures, _ := m.Int64Counter("payments.gateway.failures", metric.WithDescription("Gateway API calls that returned an error"))
	latency, _ := m.Float64Histogram("payments.gateway.latency", metric.WithUnit("ms"), metric.WithDescription("Gateway API call latency"))
	return gatewayMetrics{calls: calls, failures: failures, latency: latency}
}

func (m gatewayMetrics) recordCall(ctx context.Context, op string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("operation", op))
	if m.calls != nil {
		m.calls.Add(ctx, 1, attrs)
	}
	if err != nil && m.failures != nil {
		m.failures.Add(ctx, 1, attrs)
	}
	if m.latency != nil {
		m.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	}
}

var _ paymentsports.Gateway = (*Gateway)(nil)
