package telemetry

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric keys reported by the graph.
const (
	KeyNearestQueries  = "nearest_queries"
	KeyNearestCacheHit = "nearest_cache_hits"
	KeyNearestMisses   = "nearest_misses"
	KeyPathQueries     = "path_queries"
	KeyPathFailures    = "path_failures"
	KeyTraces          = "traces"
	KeyNodes           = "nodes"
	KeyLinks           = "links"
	KeyRouteBytes      = "route_bytes"
)

// PrometheusMetrics maps Add to counters and Store to gauges, registering
// collectors lazily under the namespace.
type PrometheusMetrics struct {
	namespace string
	registry  prometheus.Registerer

	mu       sync.Mutex
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

// NewPrometheusMetrics registers collectors with reg, or the default
// registerer when reg is nil.
func NewPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusMetrics{
		namespace: namespace,
		registry:  reg,
		counters:  make(map[string]prometheus.Counter),
		gauges:    make(map[string]prometheus.Gauge),
	}
}

func (m *PrometheusMetrics) Add(key string, delta uint64) {
	m.mu.Lock()
	counter, ok := m.counters[key]
	if !ok {
		counter = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      sanitize(key) + "_total",
			Help:      "Total " + strings.ReplaceAll(key, "_", " ") + ".",
		})
		counter = registerCounter(m.registry, counter)
		m.counters[key] = counter
	}
	m.mu.Unlock()
	counter.Add(float64(delta))
}

func (m *PrometheusMetrics) Store(key string, value uint64) {
	m.mu.Lock()
	gauge, ok := m.gauges[key]
	if !ok {
		gauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      sanitize(key),
			Help:      "Current " + strings.ReplaceAll(key, "_", " ") + ".",
		})
		gauge = registerGauge(m.registry, gauge)
		m.gauges[key] = gauge
	}
	m.mu.Unlock()
	gauge.Set(float64(value))
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) prometheus.Counter {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
	}
	return c
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge) prometheus.Gauge {
	if err := reg.Register(g); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Gauge); ok {
				return existing
			}
		}
	}
	return g
}

func sanitize(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
