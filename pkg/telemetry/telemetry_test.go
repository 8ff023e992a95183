package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nais/release/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracerWithoutInitialization(t *testing.T) {
	assert.NotPanics(t, func() {
		_, span := telemetry.StartSpan(context.Background(), "noop")
		telemetry.EndSpan(span, nil)
	})
}

func TestNewWithoutCollector(t *testing.T) {
	tp, err := telemetry.New(context.Background(), "release", "")
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	exporter := tracetest.NewInMemoryExporter()
	tp.RegisterSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter))

	ctx, parent := telemetry.StartSpan(context.Background(), "run", telemetry.AttributeEnvironment.String("prod"))
	_, child := telemetry.StartSpan(ctx, "apply", telemetry.AttributeApp.String("orders"))
	telemetry.EndSpan(child, errors.New("rejected"))
	telemetry.EndSpan(parent, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "apply", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "rejected", spans[0].Status.Description)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].Parent.TraceID())
	assert.Equal(t, codes.Unset, spans[1].Status.Code)
}
