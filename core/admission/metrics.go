package admission

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	tickDuration   prometheus.Histogram
	revokeFailures *prometheus.CounterVec
	deficitSeconds prometheus.Gauge
	pendingRevokes prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Histogram, *prometheus.CounterVec, prometheus.Gauge, prometheus.Gauge) {
	tick := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pa_tick_duration_seconds",
		Help:    "Time spent evaluating one controller tick",
		Buckets: prometheus.DefBuckets,
	})
	fail := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pa_revoke_failures_total",
		Help: "Number of outbound revoke calls that failed",
	}, []string{"reason"})
	deficit := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pa_deficit_duration_seconds",
		Help: "Time the available power has been negative",
	})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pa_pending_revocations",
		Help: "Reservations queued for revocation at the end of the last tick",
	})
	return tick, fail, deficit, pending
}

func init() {
	tickDuration, revokeFailures, deficitSeconds, pendingRevokes = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers admission metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(tickDuration, revokeFailures, deficitSeconds, pendingRevokes)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	tickDuration, revokeFailures, deficitSeconds, pendingRevokes = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
