package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/hanpama/graphrt/internal/eventbus"
	"github.com/hanpama/graphrt/internal/events"
)

func TestCollectorsFollowEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)
	unsubscribe := c.Subscribe()
	defer unsubscribe()

	ctx := context.Background()
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query"})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query", Errors: []error{errors.New("x")}})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "mutation", Aborted: true})
	eventbus.Publish(ctx, events.ResolverFinish{Coordinate: "User.fullName", Shape: "batch field", Items: 4, Failed: 1, Kind: "RESOLVER_ERROR"})
	eventbus.Publish(ctx, events.ResolverFinish{Coordinate: "User.fullName", Shape: "batch field", Items: 2})
	eventbus.Publish(ctx, events.WaveFinish{Wave: 1, Calls: 3})
	eventbus.Publish(ctx, events.GRPCClientFinish{Method: "/graphrt.remote.v1.Resolver/Resolve", Code: codes.Unavailable})

	require.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("query", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("query", "partial")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("mutation", "aborted")))
	require.Equal(t, 2.0, testutil.ToFloat64(c.resolverCalls.WithLabelValues("User.fullName", "batch field")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.resolverErrors.WithLabelValues("User.fullName", "RESOLVER_ERROR")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.remoteCalls.WithLabelValues("/graphrt.remote.v1.Resolver/Resolve", "Unavailable")))
	require.Equal(t, 1, testutil.CollectAndCount(c.batchSize))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Contains(t, rec.Body.String(), "graphrt_operations_total")
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}
