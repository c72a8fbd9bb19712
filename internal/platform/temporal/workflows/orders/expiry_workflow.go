package orders

import (
	"go.temporal.io/sdk/workflow"

	orderactivities "github.com/Apurer/medstore-checkout/internal/platform/temporal/activities/orders"
	"github.com/Apurer/medstore-checkout/internal/platform/temporal/sequences"
)

const (
	// OrderExpiryWorkflowName is the public identifier for registering the workflow.
	OrderExpiryWorkflowName = "orders.workflows.ExpirySweep"
	// OrderExpiryTaskQueue is the queue consumed by the worker processing expiry sweeps.
	OrderExpiryTaskQueue = "ORDER_EXPIRY"
	// OrderExpiryScheduleID is the workflow id of the cron-scheduled sweep.
	OrderExpiryScheduleID = "order-expiry-sweep"
)

// OrderExpiryWorkflowInput carries the trace of whoever started the sweep.
type OrderExpiryWorkflowInput struct {
	TraceID string
}

// OrderExpiryWorkflow fails stale unpaid orders and returns their count.
func OrderExpiryWorkflow(ctx workflow.Context, input OrderExpiryWorkflowInput) (*orderactivities.ExpiryResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("OrderExpiryWorkflow started", withTraceID(input.TraceID)...)
	result, err := sequences.RunOrderExpirySequence(ctx)
	if err != nil {
		logger.Error("OrderExpiryWorkflow failed", withTraceID(input.TraceID, "error", err)...)
		return nil, err
	}
	logger.Info("OrderExpiryWorkflow completed", withTraceID(input.TraceID, "expired", result.Expired)...)
	return result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
