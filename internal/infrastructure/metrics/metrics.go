package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the bridge.
type Metrics struct {
	ReconcileRuns     *prometheus.CounterVec
	NotifyFailures    prometheus.Counter
	AdminCallDuration *prometheus.HistogramVec
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nebula",
			Name:      "reconcile_runs_total",
			Help:      "Reconciliation runs by strategy and result.",
		}, []string{"strategy", "status"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nebula",
			Name:      "notify_failures_total",
			Help:      "Failed post-install notifications to the agent API.",
		}),
		AdminCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nebula",
			Name:      "admin_call_duration_seconds",
			Help:      "Duration of Shopify admin API calls by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.ReconcileRuns, m.NotifyFailures, m.AdminCallDuration)
	return m
}

// NewNop returns metrics backed by an unexported registry, for tests and
// default constructors.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
