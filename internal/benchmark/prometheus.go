package benchmark

import "github.com/prometheus/client_golang/prometheus"

// promMetrics exposes the aggregate counters via prometheus client_golang,
// mirroring the teacher's internal/ai/ai_metrics.go rollup but registered
// as real Prometheus collectors instead of a hand-rolled snapshot struct.
type promMetrics struct {
	costTotal    *prometheus.CounterVec
	callsTotal   *prometheus.CounterVec
	successTotal *prometheus.CounterVec
	cacheHits    *prometheus.CounterVec
	phaseLatency *prometheus.HistogramVec
}

func newPromMetrics() *promMetrics {
	reg := prometheus.NewRegistry()
	m := &promMetrics{
		costTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "institution_profiler_cost_usd_total",
			Help: "Cumulative LLM cost in USD by benchmark category.",
		}, []string{"category"}),
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "institution_profiler_api_calls_total",
			Help: "Total external API calls by benchmark category.",
		}, []string{"category"}),
		successTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "institution_profiler_phase_success_total",
			Help: "Count of successful phase closes by category.",
		}, []string{"category"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "institution_profiler_cache_hits_total",
			Help: "Count of cache hits by provenance kind.",
		}, []string{"kind"}),
		phaseLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "institution_profiler_phase_duration_ms",
			Help:    "Phase duration in milliseconds by category.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		}, []string{"category"}),
	}
	reg.MustRegister(m.costTotal, m.callsTotal, m.successTotal, m.cacheHits, m.phaseLatency)
	return m
}

func (m *promMetrics) observe(s Sample) {
	cat := string(s.Category)
	m.costTotal.WithLabelValues(cat).Add(s.CostUSD)
	m.callsTotal.WithLabelValues(cat).Add(float64(s.APICalls))
	if s.Success {
		m.successTotal.WithLabelValues(cat).Inc()
	}
	if s.CacheHitKind != CacheHitNone {
		m.cacheHits.WithLabelValues(string(s.CacheHitKind)).Inc()
	}
	m.phaseLatency.WithLabelValues(cat).Observe(float64(s.PhaseMS))
}
