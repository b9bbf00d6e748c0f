// Package telemetry configures OpenTelemetry tracing for the escrow binaries.
package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"rental-escrow-backend/internal/config"
)

const instrumentationName = "rental-escrow-backend"

// Tracer returns the tracer used for ledger spans. It is a no-op until Setup
// registers a provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Setup registers a global tracer provider exporting over OTLP/HTTP. When tracing is
// disabled or no endpoint is configured it returns a no-op shutdown and registers nothing.
//
// The returned shutdown function flushes pending spans and should be deferred.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled || strings.TrimSpace(cfg.OTLPEndpoint) == "" {
		return noop, nil
	}

	var opts []otlptracehttp.Option
	if strings.Contains(cfg.OTLPEndpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}
