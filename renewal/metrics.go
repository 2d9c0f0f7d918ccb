package renewal

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Renewal outcomes recorded in RenewalsTotal.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeNoToken  = "no_refresh_token"
	OutcomeTimedOut = "timeout"
)

// Metrics holds the Prometheus metrics for credential renewal.
type Metrics struct {
	RenewalsTotal   *prometheus.CounterVec
	WaitersTotal    prometheus.Counter
	RenewalDuration prometheus.Histogram
}

// NewMetrics creates and registers the renewal metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RenewalsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authclient",
				Name:      "renewals_total",
				Help:      "Renewal calls issued to the server, by outcome",
			},
			[]string{"outcome"},
		),
		WaitersTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "authclient",
				Name:      "renewal_waiters_total",
				Help:      "Calls that waited on a renewal, including the one that started it",
			},
		),
		RenewalDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "authclient",
				Name:      "renewal_duration_seconds",
				Help:      "Time from starting a renewal to settling its waiters",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

func (m *Metrics) waiter() {
	if m == nil {
		return
	}
	m.WaitersTotal.Inc()
}

func (m *Metrics) observe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RenewalsTotal.WithLabelValues(outcome).Inc()
	m.RenewalDuration.Observe(d.Seconds())
}
