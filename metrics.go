package sharedkernel

import (
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names emitted by the kernel.
const (
	MetricErrorsTranslated = "errors_translated_total"
	MetricRequestDuration  = "http_request_duration_seconds"
	MetricRequestsTotal    = "http_requests_total"
)

// Metrics is a generic metrics interface.
type Metrics interface {
	IncCounter(name string, tags map[string]string)
	ObserveHistogram(name string, value float64, tags map[string]string)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) IncCounter(string, map[string]string)                 {}
func (NoopMetrics) ObserveHistogram(string, float64, map[string]string) {}

// PrometheusMetrics implements Metrics with Prometheus vectors that are
// created on first use. Every use of a name must carry the same tag keys.
type PrometheusMetrics struct {
	reg        prometheus.Registerer
	namespace  string
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetrics registers its vectors on reg, or on the default
// registerer when reg is nil.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusMetrics{
		reg:        reg,
		namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (m *PrometheusMetrics) IncCounter(name string, tags map[string]string) {
	m.mu.Lock()
	vec, ok := m.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      name,
			Help:      name + " counter",
		}, labelNames(tags))
		m.reg.MustRegister(vec)
		m.counters[name] = vec
	}
	m.mu.Unlock()

	vec.With(tags).Inc()
}

func (m *PrometheusMetrics) ObserveHistogram(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	vec, ok := m.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      name,
			Help:      name + " histogram",
			Buckets:   prometheus.DefBuckets,
		}, labelNames(tags))
		m.reg.MustRegister(vec)
		m.histograms[name] = vec
	}
	m.mu.Unlock()

	vec.With(tags).Observe(value)
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
