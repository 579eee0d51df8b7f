// Package metrics holds the Prometheus collectors of the question-answering pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "musubi"

// Metrics records pipeline activity on its own registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	graphItems    prometheus.Counter
	failures      *prometheus.CounterVec
	documents     prometheus.Gauge
}

// New creates the collectors and registers them with Go runtime and process metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions answered, by executed strategy.",
		}, []string{"strategy"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each answering stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
		}, []string{"stage"}),
		graphItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_context_items_total",
			Help:      "Graph context items attached to answers.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed questions, by error kind.",
		}, []string{"kind"}),
		documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_documents",
			Help:      "Documents in the local index.",
		}),
	}
	m.registry.MustRegister(
		m.requests, m.stageDuration, m.graphItems, m.failures, m.documents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveQuestion counts one question answered with strategy.
func (m *Metrics) ObserveQuestion(strategy string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strategy).Inc()
}

// ObserveStage records the duration of one stage (classify, vector, graph, generate).
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// AddGraphItems counts graph context items.
func (m *Metrics) AddGraphItems(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.graphItems.Add(float64(n))
}

// ObserveFailure counts a failed question by error kind.
func (m *Metrics) ObserveFailure(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}

// SetDocuments sets the indexed document gauge.
func (m *Metrics) SetDocuments(n int) {
	if m == nil {
		return
	}
	m.documents.Set(float64(n))
}
