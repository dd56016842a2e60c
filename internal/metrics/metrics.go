// Package metrics exports Prometheus collectors fed from runtime events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanpama/graphrt/internal/eventbus"
	"github.com/hanpama/graphrt/internal/events"
)

// Collectors groups every metric graphrt records.
type Collectors struct {
	operations       *prometheus.CounterVec
	operationSeconds *prometheus.HistogramVec
	resolverCalls    *prometheus.CounterVec
	resolverErrors   *prometheus.CounterVec
	resolverSeconds  *prometheus.HistogramVec
	batchSize        *prometheus.HistogramVec
	waveCalls        prometheus.Histogram
	remoteCalls      *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphrt_operations_total",
				Help: "Total number of executed operations per type and outcome",
			},
			[]string{"type", "outcome"},
		),
		operationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graphrt_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		resolverCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphrt_resolver_calls_total",
				Help: "Total number of resolver, node loader and checker calls per coordinate",
			},
			[]string{"coordinate", "shape"},
		),
		resolverErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphrt_resolver_errors_total",
				Help: "Total number of failed resolver items per coordinate and error kind",
			},
			[]string{"coordinate", "kind"},
		),
		resolverSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graphrt_resolver_duration_seconds",
				Help:    "Duration of resolver calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"coordinate"},
		),
		batchSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graphrt_batch_size",
				Help:    "Number of items per batched call",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"coordinate"},
		),
		waveCalls: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "graphrt_wave_calls",
				Help:    "Number of concurrent calls launched per wave",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		remoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphrt_remote_calls_total",
				Help: "Total number of remote resolver calls per method and status code",
			},
			[]string{"method", "code"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphrt_http_requests_total",
				Help: "Total number of HTTP requests per status",
			},
			[]string{"status"},
		),
	}
	for _, col := range []prometheus.Collector{
		c.operations, c.operationSeconds, c.resolverCalls, c.resolverErrors,
		c.resolverSeconds, c.batchSize, c.waveCalls, c.remoteCalls, c.httpRequests,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Subscribe updates c from events on the global bus.
func (c *Collectors) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			outcome := "ok"
			switch {
			case e.Aborted:
				outcome = "aborted"
			case len(e.Errors) > 0:
				outcome = "partial"
			}
			c.operations.WithLabelValues(e.OperationType, outcome).Inc()
			c.operationSeconds.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		}),

		eventbus.Subscribe(func(_ context.Context, e events.ResolverFinish) {
			c.resolverCalls.WithLabelValues(e.Coordinate, e.Shape).Inc()
			c.resolverSeconds.WithLabelValues(e.Coordinate).Observe(e.Duration.Seconds())
			if e.Failed > 0 {
				kind := e.Kind
				if kind == "" {
					kind = "RESOLVER_ERROR"
				}
				c.resolverErrors.WithLabelValues(e.Coordinate, kind).Add(float64(e.Failed))
			}
			if e.Items > 1 {
				c.batchSize.WithLabelValues(e.Coordinate).Observe(float64(e.Items))
			}
		}),

		eventbus.Subscribe(func(_ context.Context, e events.WaveFinish) {
			c.waveCalls.Observe(float64(e.Calls))
		}),

		eventbus.Subscribe(func(_ context.Context, e events.GRPCClientFinish) {
			c.remoteCalls.WithLabelValues(e.Method, e.Code.String()).Inc()
		}),

		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			c.httpRequests.WithLabelValues(strconv.Itoa(e.Status)).Inc()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
