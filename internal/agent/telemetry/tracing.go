package telemetry

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/mohammad-safakhou/todoagent/config"
)

// TracerName identifies spans created by this service.
const TracerName = "todoagent"

// SetupTracing configures OTLP/HTTP trace export. Failure to configure the
// exporter is never fatal: the function logs a warning and leaves the global
// no-op tracer in place, so callers can keep creating (inert) spans either
// way. The returned shutdown flushes pending spans.
func SetupTracing(ctx context.Context, cfg config.TelemetryConfig) func(context.Context) error {
	logger := log.New(log.Writer(), "[TRACING] ", log.LstdFlags)
	noop := func(context.Context) error { return nil }

	if !cfg.Enabled || cfg.OTLPEndpoint == "" {
		logger.Printf("tracing export disabled (no OTLP endpoint configured), using no-op tracer")
		return noop
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Printf("failed to create OTLP exporter, falling back to no-op tracer: %v", err)
		return noop
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.ServiceName),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Printf("tracing enabled (endpoint=%s, service=%s)", cfg.OTLPEndpoint, cfg.ServiceName)
	return tp.Shutdown
}
