// Package tracing installs the process-wide TracerProvider: OTLP over HTTP
// when an endpoint is configured, otherwise no-op.
package tracing

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"

	"github.com/emergent-company/moviebench/internal/config"
	"github.com/emergent-company/moviebench/internal/server"
	"github.com/emergent-company/moviebench/internal/version"
	"github.com/emergent-company/moviebench/pkg/logger"
)

// Module wires tracing into the serve app: provider, shutdown hook and the
// echo middleware.
var Module = fx.Module("tracing",
	fx.Provide(NewTracerProvider),
	fx.Invoke(RegisterTracingLifecycle),
	fx.Invoke(RegisterEchoMiddleware),
)

// Install registers the global TracerProvider for cfg. The returned provider
// is nil when tracing is disabled; otherwise the caller must shut it down.
func Install(ctx context.Context, cfg config.OtelConfig, log *slog.Logger) (*sdktrace.TracerProvider, error) {
	log = log.With(logger.Scope("tracing"))

	if !cfg.Enabled() {
		log.Debug("tracing disabled (OTEL_EXPORTER_OTLP_ENDPOINT not set)")
		otel.SetTracerProvider(noop.NewTracerProvider())
		return nil, nil
	}

	log.Info("tracing enabled",
		slog.String("endpoint", cfg.ExporterEndpoint),
		slog.String("service", cfg.ServiceName),
		slog.Float64("sampling_rate", cfg.SamplingRate),
	)

	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.ExporterEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version.Version),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
	)
	if err != nil {
		log.Warn("resource detection failed", logger.Error(err))
		res = resource.Empty()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Sampler samples everything at rate >= 1 and a trace-id ratio otherwise.
func Sampler(rate float64) sdktrace.Sampler {
	if rate >= 1.0 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.TraceIDRatioBased(rate)
}

type tracerProviderResult struct {
	fx.Out

	// SDKProvider is non-nil only when OTLP is enabled.
	SDKProvider *sdktrace.TracerProvider `name:"otelSDKProvider" optional:"true"`
}

// NewTracerProvider installs the provider for the fx app.
func NewTracerProvider(cfg *config.Config, log *slog.Logger) (tracerProviderResult, error) {
	tp, err := Install(context.Background(), cfg.Otel, log)
	if err != nil {
		return tracerProviderResult{}, err
	}
	return tracerProviderResult{SDKProvider: tp}, nil
}

type sdkProviderParam struct {
	fx.In
	SDKProvider *sdktrace.TracerProvider `name:"otelSDKProvider" optional:"true"`
}

// RegisterTracingLifecycle flushes and shuts the SDK provider down on app stop.
func RegisterTracingLifecycle(lc fx.Lifecycle, p sdkProviderParam, log *slog.Logger) {
	if p.SDKProvider == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down TracerProvider")
			return p.SDKProvider.Shutdown(ctx)
		},
	})
}

// RegisterEchoMiddleware adds the otelecho middleware, skipping probe routes.
func RegisterEchoMiddleware(e *echo.Echo, cfg *config.Config) {
	if !cfg.Otel.Enabled() {
		return
	}
	e.Use(otelecho.Middleware(
		cfg.Otel.ServiceName,
		otelecho.WithSkipper(func(c echo.Context) bool {
			return server.IsQuietPath(c.Request().URL.Path)
		}),
	))
}
