// Package metrics exposes the resolver framework's Prometheus
// instrumentation: query counts by transport/opcode, response counts by
// rcode, resolve latency, rate-limit drops, BADCOOKIE rejections and the
// depth of the worker pool queue.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the server registers. A nil *Metrics
// is valid and every method on it is a no-op, so instrumentation can be
// disabled by simply not constructing one.
type Metrics struct {
	QueriesTotal     *prometheus.CounterVec
	ResponsesTotal   *prometheus.CounterVec
	QueryDuration    *prometheus.HistogramVec
	RateLimitDropped prometheus.Counter
	CookieBadCount   prometheus.Counter
	WorkerQueueDepth prometheus.Gauge
}

// New constructs and registers the server's metric collectors against
// reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dnscodec",
			Name:      "queries_total",
			Help:      "Total queries received, labeled by transport and opcode.",
		}, []string{"transport", "opcode"}),
		ResponsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dnscodec",
			Name:      "responses_total",
			Help:      "Total responses sent, labeled by rcode.",
		}, []string{"rcode"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dnscodec",
			Name:      "query_duration_seconds",
			Help:      "Time spent resolving a query, labeled by transport.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport"}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dnscodec",
			Name:      "ratelimit_dropped_total",
			Help:      "Responses dropped or slipped by response rate limiting.",
		}),
		CookieBadCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dnscodec",
			Name:      "cookie_bad_total",
			Help:      "Queries rejected with BADCOOKIE.",
		}),
		WorkerQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dnscodec",
			Name:      "worker_queue_depth",
			Help:      "Current depth of the resolve worker pool queue.",
		}),
	}

	reg.MustRegister(m.QueriesTotal, m.ResponsesTotal, m.QueryDuration,
		m.RateLimitDropped, m.CookieBadCount, m.WorkerQueueDepth)
	return m
}

func (m *Metrics) ObserveQuery(transport, opcode string) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(transport, opcode).Inc()
}

func (m *Metrics) ObserveResponse(rcode string) {
	if m == nil {
		return
	}
	m.ResponsesTotal.WithLabelValues(rcode).Inc()
}
