package otel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hanpama/graphrt/internal/eventbus"
	"github.com/hanpama/graphrt/internal/events"
	"github.com/hanpama/graphrt/internal/reqid"
)

func TestSpansFollowRequestLifecycle(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	unsubscribe := Subscribe(tp.Tracer(TracerName))
	defer unsubscribe()

	ctx, _ := reqid.NewContext(context.Background())
	eventbus.Publish(ctx, events.HTTPStart{Method: "POST", Path: "/graphql"})
	eventbus.Publish(ctx, events.GraphQLStart{OperationName: "Q", OperationType: "query"})
	eventbus.Publish(ctx, events.ResolverFinish{Coordinate: "User.fullName", Shape: "batch field", Items: 3, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.ResolverFinish{Coordinate: "Query.user", Shape: "field", Items: 1, Err: errors.New("boom")})
	eventbus.Publish(ctx, events.WaveFinish{Wave: 1, Calls: 2})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationName: "Q", Errors: []error{errors.New("boom")}})
	eventbus.Publish(ctx, events.HTTPFinish{Method: "POST", Path: "/graphql", Status: 200, Operations: 1})

	ended := rec.Ended()
	names := make([]string, len(ended))
	for i, s := range ended {
		names[i] = s.Name()
	}
	require.Equal(t, []string{
		"graphql.resolve User.fullName",
		"graphql.resolve Query.user",
		"graphql.wave",
		"graphql.operation",
		"http.request",
	}, names)

	op, httpSpan := ended[3], ended[4]
	require.Equal(t, httpSpan.SpanContext().SpanID(), op.Parent().SpanID())
	require.Equal(t, op.SpanContext().SpanID(), ended[0].Parent().SpanID())
	require.Len(t, ended[1].Events(), 1, "error recorded")
	require.Equal(t, time.Millisecond, ended[0].EndTime().Sub(ended[0].StartTime()))
}

func TestUnsubscribeStopsRecording(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	Subscribe(tp.Tracer(TracerName))()

	eventbus.Publish(context.Background(), events.WaveFinish{Wave: 1})
	require.Empty(t, rec.Ended())
}

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "svc")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
