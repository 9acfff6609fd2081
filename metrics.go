package adminauth

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the engine's Prometheus instrumentation. A nil *Metrics is
// valid and records nothing, so call sites never branch.
type Metrics struct {
	registry *prometheus.Registry

	logins        *prometheus.CounterVec
	lockouts      prometheus.Counter
	refreshes     *prometheus.CounterVec
	tokenRejects  *prometheus.CounterVec
	sessionsEnded *prometheus.CounterVec
	auditDropped  prometheus.Counter
	verifyLatency prometheus.Histogram
}

// NewMetrics builds and registers the metric set on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "adminauth"
	}
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lockouts_total",
			Help:      "Login attempts rejected while a lockout window was active.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Token refresh attempts by outcome.",
		}, []string{"outcome"}),
		tokenRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_rejections_total",
			Help:      "Access token verifications that failed, by reason code.",
		}, []string{"reason"}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions invalidated, by cause.",
		}, []string{"cause"}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_dropped_total",
			Help:      "Audit events shed because the dispatcher buffer was full.",
		}),
		verifyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verify_duration_seconds",
			Help:      "Latency of access token verification including the session check.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}

	reg.MustRegister(m.logins, m.lockouts, m.refreshes, m.tokenRejects,
		m.sessionsEnded, m.auditDropped, m.verifyLatency)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) login(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) lockout() {
	if m != nil {
		m.lockouts.Inc()
	}
}

func (m *Metrics) refresh(outcome string) {
	if m != nil {
		m.refreshes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) tokenRejected(reason string) {
	if m != nil {
		m.tokenRejects.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) sessionEnded(cause string, n int) {
	if m != nil && n > 0 {
		m.sessionsEnded.WithLabelValues(cause).Add(float64(n))
	}
}

func (m *Metrics) auditDrop(n uint64) {
	if m != nil && n > 0 {
		m.auditDropped.Add(float64(n))
	}
}

func (m *Metrics) observeVerify(start time.Time) {
	if m != nil {
		m.verifyLatency.Observe(time.Since(start).Seconds())
	}
}
