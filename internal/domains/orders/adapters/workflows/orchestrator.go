package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
	orderactivities "github.com/Apurer/medstore-checkout/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/medstore-checkout/internal/platform/temporal/workflows/orders"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalOrderWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineOrderWorkflows)(nil)
)

// TemporalOrderWorkflows starts order workflows on a Temporal cluster.
type TemporalOrderWorkflows struct {
	client    client.Client
	taskQueue string
}

// NewTemporalOrderWorkflows wires a Temporal client into the orchestrator.
func NewTemporalOrderWorkflows(c client.Client) *TemporalOrderWorkflows {
	return &TemporalOrderWorkflows{client: c, taskQueue: orderworkflows.OrderExpiryTaskQueue}
}

// ExpireStale runs an on-demand sweep and waits for its result.
func (o *TemporalOrderWorkflows) ExpireStale(ctx context.Context) (int, error) {
	if o == nil || o.client == nil {
		return 0, errors.New("temporal order workflows not configured")
	}
	traceComponent := workflowTraceComponent(ctx)
	options := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("order-expiry-%s", traceComponent),
		TaskQueue: o.taskQueue,
	}
	run, err := o.client.ExecuteWorkflow(ctx, options, orderworkflows.OrderExpiryWorkflow,
		orderworkflows.OrderExpiryWorkflowInput{TraceID: traceComponent})
	if err != nil {
		return 0, err
	}
	var result orderactivities.ExpiryResult
	if err := run.Get(ctx, &result); err != nil {
		return 0, err
	}
	return result.Expired, nil
}

// ScheduleSweep registers the cron-driven sweep. An existing schedule is left in place.
func (o *TemporalOrderWorkflows) ScheduleSweep(ctx context.Context, cron string) error {
	if o == nil || o.client == nil {
		return errors.New("temporal order workflows not configured")
	}
	_, err := o.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           orderworkflows.OrderExpiryScheduleID,
		TaskQueue:    o.taskQueue,
		CronSchedule: cron,
	}, orderworkflows.OrderExpiryWorkflow, orderworkflows.OrderExpiryWorkflowInput{})
	var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &alreadyStarted) {
		return nil
	}
	return err
}

// InlineOrderWorkflows executes the service directly without Temporal, useful for tests or dev fallbacks.
type InlineOrderWorkflows struct {
	service ports.Service
}

func NewInlineOrderWorkflows(service ports.Service) *InlineOrderWorkflows {
	return &InlineOrderWorkflows{service: service}
}

func (o *InlineOrderWorkflows) ExpireStale(ctx context.Context) (int, error) {
	if o == nil || o.service == nil {
		return 0, errors.New("inline order workflows not configured")
	}
	return o.service.ExpireStale(ctx)
}

func workflowTraceComponent(ctx context.Context) string {
	if traceID := workflowTraceID(ctx); traceID != "" {
		return traceID
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
