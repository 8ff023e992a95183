// Functions for working with OpenTelemetry in the release tool.

package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/nais/release/pkg/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	otrace "go.opentelemetry.io/otel/trace"
)

// How long between each time OT sends something to the collector.
const batchTimeout = 5 * time.Second

const (
	AttributeReleaseID     = attribute.Key("release.id")
	AttributeCorrelationID = attribute.Key("release.correlation_id")
	AttributeEnvironment   = attribute.Key("release.environment")
	AttributeApp           = attribute.Key("release.app")
)

// Singleton instance of the default tracer.
// Access it with `Tracer()`.
var tracer *trace.TracerProvider

// Initialize the OpenTelemetry library.
//
// Spans are only exported when collectorEndpointURL is set.
// You MUST call `Shutdown()` on the tracer provider before exiting,
// lest traces are not sent to the collector.
func New(ctx context.Context, serviceName string, collectorEndpointURL string) (*trace.TracerProvider, error) {
	prop := newPropagator()
	otel.SetTextMapPropagator(prop)

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.OSName(runtime.GOOS),
		semconv.ServiceVersion(version.Version()),
	)

	tracerProvider, err := newTraceProvider(ctx, res, collectorEndpointURL)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tracerProvider)

	tracer = tracerProvider

	return tracerProvider, nil
}

// Returns the top-level tracer.
//
// When `New()` has not been called, the global tracer is returned, which does nothing
// unless another provider has been registered.
func Tracer() otrace.Tracer {
	if tracer == nil {
		return otel.Tracer("")
	}
	return tracer.Tracer("")
}

// StartSpan starts a child span of whatever span is present in ctx.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, otrace.Span) {
	return Tracer().Start(ctx, name, otrace.WithAttributes(attrs...))
}

// EndSpan records err, if any, on the span before ending it.
func EndSpan(span otrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func newTraceProvider(ctx context.Context, res *resource.Resource, endpointURL string) (*trace.TracerProvider, error) {
	if len(endpointURL) == 0 {
		return trace.NewTracerProvider(trace.WithResource(res)), nil
	}

	traceExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpointURL))
	if err != nil {
		return nil, err
	}

	traceProvider := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter,
			trace.WithBatchTimeout(batchTimeout)),
		trace.WithResource(res),
	)

	return traceProvider, nil
}
