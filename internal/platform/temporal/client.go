package temporal

import (
	"errors"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	platformobservability "github.com/Apurer/medstore-checkout/internal/platform/observability"
)

// ErrDisabled is returned by Dial when TEMPORAL_DISABLED is set.
var ErrDisabled = errors.New("temporal disabled via TEMPORAL_DISABLED")

// ClientSettings locates the Temporal frontend.
type ClientSettings struct {
	Address   string
	Namespace string
	Disabled  bool
	// Component names the tracer, e.g. "temporal-client" or "temporal-worker".
	Component string
}

// Dial connects a traced, slog-backed Temporal client.
func Dial(settings ClientSettings, instruments *platformobservability.Instruments) (client.Client, error) {
	if settings.Disabled {
		return nil, ErrDisabled
	}
	address := settings.Address
	if address == "" {
		address = client.DefaultHostPort
	}
	namespace := settings.Namespace
	if namespace == "" {
		namespace = client.DefaultNamespace
	}
	component := settings.Component
	if component == "" {
		component = "temporal-client"
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{
		Tracer: instruments.Tracer(component),
	})
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  address,
		Namespace: namespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
