package query

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts Query Engine traffic.
type Metrics struct {
	Requests  *prometheus.CounterVec
	CacheHits prometheus.Counter
}

// NewMetrics registers the query counters on reg. A nil reg skips registration,
// which keeps tests from colliding on the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gldash",
			Name:      "query_requests_total",
			Help:      "Query Engine requests by addressing target and outcome.",
		}, []string{"target", "outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gldash",
			Name:      "query_cache_hits_total",
			Help:      "Query Engine requests answered from the result cache.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.CacheHits)
	}
	return m
}

func (m *Metrics) request(target Target, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(target.String(), outcome).Inc()
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}
