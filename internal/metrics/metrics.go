// Package metrics exports Prometheus collectors fed by request events.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hanpama/socialgraph/internal/eventbus"
	"github.com/hanpama/socialgraph/internal/events"
)

const namespace = "socialgraph"

var latencyBuckets = []float64{1, 3, 5, 10, 25, 50, 100, 250, 1000, 5000} // milliseconds

// Metrics holds the collectors registered for one process.
type Metrics struct {
	loaderBatches   *prometheus.CounterVec
	loaderBatchSize *prometheus.HistogramVec
	loaderLatency   *prometheus.HistogramVec

	connectionFetches *prometheus.CounterVec
	connectionLatency *prometheus.HistogramVec

	operations        *prometheus.CounterVec
	operationFlushes  prometheus.Histogram
	operationDuration *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	mutations    *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		loaderBatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loader_batches_total",
			Help:      "Number of batched entity fetches by kind and outcome.",
		}, []string{"kind", "outcome"}),
		loaderBatchSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "loader_batch_size",
			Help:      "Number of distinct ids requested per batched entity fetch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"kind"}),
		loaderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "loader_fetch_duration_ms",
			Help:      "Time spent in one batched entity fetch.",
			Buckets:   latencyBuckets,
		}, []string{"kind"}),

		connectionFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_fetches_total",
			Help:      "Number of connection page queries by relation, direction and outcome.",
		}, []string{"relation", "direction", "outcome"}),
		connectionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connection_fetch_duration_ms",
			Help:      "Time spent in one connection page query.",
			Buckets:   latencyBuckets,
		}, []string{"relation"}),

		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_operations_total",
			Help:      "Number of executed GraphQL operations by type and outcome.",
		}, []string{"type", "outcome"}),
		operationFlushes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graphql_operation_flushes",
			Help:      "Deferred batches drained per GraphQL operation.",
			Buckets:   prometheus.LinearBuckets(0, 2, 10),
		}),
		operationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graphql_operation_duration_ms",
			Help:      "Time spent executing one GraphQL operation.",
			Buckets:   latencyBuckets,
		}, []string{"type"}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by status code.",
		}, []string{"code"}),
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_applied_total",
			Help:      "Number of mutations that changed the datastore.",
		}, []string{"mutation"}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// Subscribe updates the collectors from events published on the global bus.
func (m *Metrics) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.LoaderFlush) {
			m.loaderBatches.WithLabelValues(e.Kind, outcome(e.Err)).Inc()
			m.loaderBatchSize.WithLabelValues(e.Kind).Observe(float64(len(e.IDs)))
			m.loaderLatency.WithLabelValues(e.Kind).Observe(ms(e.Duration))
		}),

		eventbus.Subscribe(func(_ context.Context, e events.ConnectionFetch) {
			direction := "forward"
			if e.Backward {
				direction = "backward"
			}
			m.connectionFetches.WithLabelValues(e.Relation, direction, outcome(e.Err)).Inc()
			m.connectionLatency.WithLabelValues(e.Relation).Observe(ms(e.Duration))
		}),

		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			result := "ok"
			if len(e.Errors) > 0 {
				result = "error"
			}
			m.operations.WithLabelValues(e.OperationType, result).Inc()
			m.operationFlushes.Observe(float64(e.Flushes))
			m.operationDuration.WithLabelValues(e.OperationType).Observe(ms(e.Duration))
		}),

		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			m.httpRequests.WithLabelValues(strconv.Itoa(e.Status)).Inc()
		}),

		eventbus.Subscribe(func(_ context.Context, e events.MutationApplied) {
			m.mutations.WithLabelValues(e.Name).Inc()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
