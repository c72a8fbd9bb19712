package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	customerdomain "github.com/Apurer/medstore-checkout/internal/domains/customers/domain"
	customerports "github.com/Apurer/medstore-checkout/internal/domains/customers/ports"
)

const tracerName = "github.com/Apurer/medstore-checkout/internal/domains/customers/adapters/observability/service"

// Service decorates the customer service with tracing, logging, and metrics.
type Service struct {
	inner   customerports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.metrics = newServiceMetrics(m) }
}

// New wraps the core customer service.
func New(inner customerports.Service, opts ...Option) customerports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
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
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

func (s *Service) Get(ctx context.Context, id int64) (*customerdomain.Customer, error) {
	ctx, span := s.tracer.Start(ctx, "CustomerService.Get", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()
	return s.inner.Get(ctx, id)
}

func (s *Service) SaveProfile(ctx context.Context, id int64, profile customerdomain.Profile) (*customerdomain.Customer, error) {
	ctx, span := s.tracer.Start(ctx, "CustomerService.SaveProfile", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()
	result, err := s.inner.SaveProfile(ctx, id, profile)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to save profile", slog.Int64("customer.id", id))
	}
	s.metrics.recordSaved(ctx)
	s.logger.LogAttrs(ctx, slog.LevelInfo, "profile saved",
		slog.Int64("customer.id", id),
		slog.Bool("customer.address_complete", result.CheckAddress() == nil),
	)
	return result, nil
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	return err
}

type serviceMetrics struct {
	profilesSaved metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	saved, _ := m.Int64Counter("customers.service.profiles_saved", metric.WithDescription("Number of profile saves"))
	return serviceMetrics{profilesSaved: saved}
}

func (m serviceMetrics) recordSaved(ctx context.Context) {
	if m.profilesSaved != nil {
		m.profilesSaved.Add(ctx, 1)
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ customerports.Service = (*Service)(nil)
