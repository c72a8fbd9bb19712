package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	orderactivities "github.com/Apurer/medstore-checkout/internal/platform/temporal/activities/orders"
)

// RunOrderExpirySequence executes the expiry sweep activity with its retry policy.
func RunOrderExpirySequence(ctx workflow.Context) (*orderactivities.ExpiryResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("order expiry sequence started")
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}

	var result orderactivities.ExpiryResult
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, options), orderactivities.ExpireStaleOrdersActivityName).Get(ctx, &result)
	if err != nil {
		logger.Error("order expiry sequence failed", "error", err)
		return nil, err
	}
	logger.Info("order expiry sequence completed", "expired", result.Expired)
	return &result, nil
}
