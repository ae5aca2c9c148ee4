package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"cdcrouter/internal/config"
)

func TestInitDisabled(t *testing.T) {
	tp, err := Init(config.TracingConfig{Enabled: false}, "")
	require.NoError(t, err)
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestHeaderPropagationRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "produce")
	defer span.End()

	headers := InjectHeaders(ctx, map[string]string{"source": "Orders"})
	assert.Equal(t, "Orders", headers["source"])
	assert.NotEmpty(t, headers["traceparent"])

	extracted := ExtractHeaders(context.Background(), headers)
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceID(extracted))

	assert.NotNil(t, InjectHeaders(context.Background(), nil))
	assert.Empty(t, TraceID(ExtractHeaders(context.Background(), nil)))
}

func TestEndSpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "dispatch")
	EndSpan(span, errors.New("boom"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "boom", ended[0].Status().Description)
}

func TestTraceIDEmptyWithoutSpan(t *testing.T) {
	assert.Equal(t, "", TraceID(context.Background()))
}
