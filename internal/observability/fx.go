package observability

import (
	"context"

	"github.com/salasbeats/marketplace/internal/observability/metrics"
	"github.com/salasbeats/marketplace/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideTracingConfig,
		provideTracerProvider,
		metrics.NewHTTPMetrics,
		metrics.NewSchedulerMetrics,
	),
	fx.Invoke(registerTracingShutdown),
)

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelEndpoint,
	}
}

func provideTracerProvider(cfg tracing.Config) (*sdktrace.TracerProvider, error) {
	return tracing.NewProvider(context.Background(), cfg)
}

func registerTracingShutdown(lc fx.Lifecycle, provider *sdktrace.TracerProvider) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})
}
