package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	mw "github.com/xraph/coldrun/middleware"
)

func setupTestTracer() (*tracetest.SpanRecorder, trace.Tracer) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := tp.Tracer("test")
	return sr, tracer
}

func TestTracingCreatesSpan(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)
	msg := newTestMessage()

	ack, err := m(context.Background(), msg, func(_ context.Context) (bool, error) {
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, ack)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "coldrun.job.execute", spans[0].Name())
}

func TestTracingSpanAttributes(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)
	msg := newTestMessage()

	_, _ = m(context.Background(), msg, func(_ context.Context) (bool, error) {
		return true, nil
	})

	spans := sr.Ended()
	require.Len(t, spans, 1)

	attrMap := make(map[string]interface{}, len(spans[0].Attributes()))
	for _, a := range spans[0].Attributes() {
		switch a.Value.Type() {
		case attribute.STRING:
			attrMap[string(a.Key)] = a.Value.AsString()
		case attribute.INT64:
			attrMap[string(a.Key)] = a.Value.AsInt64()
		}
	}

	assert.Equal(t, msg.JobID.String(), attrMap["coldrun.job.id"])
	assert.Equal(t, "camera-angle", attrMap["coldrun.job.type"])
	assert.Equal(t, int64(1), attrMap["coldrun.receives"])
}

func TestTracingSuccessSetsOkStatus(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)
	msg := newTestMessage()

	_, _ = m(context.Background(), msg, func(_ context.Context) (bool, error) {
		return true, nil
	})

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
}

func TestTracingErrorSetsErrorStatus(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)
	msg := newTestMessage()

	handlerErr := errors.New("handler failed")
	_, err := m(context.Background(), msg, func(_ context.Context) (bool, error) {
		return false, handlerErr
	})
	require.ErrorIs(t, err, handlerErr)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "handler failed", spans[0].Status().Description)

	found := false
	for _, ev := range spans[0].Events() {
		if ev.Name == "exception" {
			found = true
		}
	}
	assert.True(t, found, "expected 'exception' event to be recorded on span")
}

func TestTracingPropagatesContext(t *testing.T) {
	sr, tracer := setupTestTracer()
	m := mw.TracingWithTracer(tracer)
	msg := newTestMessage()

	var handlerSpanCtx trace.SpanContext
	_, _ = m(context.Background(), msg, func(ctx context.Context) (bool, error) {
		handlerSpanCtx = trace.SpanFromContext(ctx).SpanContext()
		return true, nil
	})

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.True(t, handlerSpanCtx.IsValid())
	assert.Equal(t, spans[0].SpanContext().TraceID(), handlerSpanCtx.TraceID())
}

func TestTracingDefaultNoopSafe(t *testing.T) {
	m := mw.Tracing()
	msg := newTestMessage()

	called := false
	ack, err := m(context.Background(), msg, func(_ context.Context) (bool, error) {
		called = true
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, ack)
	assert.True(t, called)
}
