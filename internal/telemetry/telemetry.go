package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aaravmahajanofficial/itemstore/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type ShutdownFunc func(ctx context.Context) error

// Setup installs the global tracer provider. Without an exporter endpoint spans
// are still sampled and propagated but never leave the process.
func Setup(ctx context.Context, cfg config.OtelConfig) (ShutdownFunc, error) {

	var opts []sdktrace.TracerProviderOption

	if cfg.ExporterEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.ExporterEndpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		slog.Info("Exporting traces", slog.String("endpoint", cfg.ExporterEndpoint))
	} else {
		slog.Info("No trace exporter configured")
	}

	tp := newProvider(cfg, opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func newProvider(cfg config.OtelConfig, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	opts = append(opts,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplerRatio))),
	)

	return sdktrace.NewTracerProvider(opts...)
}
