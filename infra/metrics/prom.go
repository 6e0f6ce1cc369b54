package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/pa/core/metrics"
)

// PromSink exposes admission state and decisions as Prometheus metrics.
type PromSink struct {
	avail        prometheus.Gauge
	reserved     prometheus.Gauge
	budget       prometheus.Gauge
	reservations prometheus.Gauge
	night        prometheus.Gauge
	decisions    *prometheus.CounterVec
	revocations  *prometheus.CounterVec
	latency      prometheus.Histogram
}

// NewPromSink registers admission metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gauge := func(name, help string) (prometheus.Gauge, error) {
		return register[prometheus.Gauge](reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help}))
	}
	var (
		s   PromSink
		err error
	)
	if s.avail, err = gauge("pa_avail_watts", "Power available for new reservations"); err != nil {
		return nil, err
	}
	if s.reserved, err = gauge("pa_reserved_watts", "Sum of active reservations"); err != nil {
		return nil, err
	}
	if s.budget, err = gauge("pa_budget_watts", "Effective fixed budget, 0 when estimating"); err != nil {
		return nil, err
	}
	if s.reservations, err = gauge("pa_reservations", "Number of active reservations"); err != nil {
		return nil, err
	}
	if s.night, err = gauge("pa_night_mode", "1 while the night schedule is active"); err != nil {
		return nil, err
	}
	if s.decisions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pa_decisions_total",
		Help: "Admission calls by operation and result code",
	}, []string{"op", "code"})); err != nil {
		return nil, err
	}
	if s.revocations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pa_revocations_total",
		Help: "Revocations by reason and delivery result",
	}, []string{"reason", "delivered"})); err != nil {
		return nil, err
	}
	if s.latency, err = register[prometheus.Histogram](reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pa_revoke_latency_seconds",
		Help:    "Time until the owning agent answered a revoke",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	return &s, nil
}

// RecordSnapshot updates the state gauges.
func (s *PromSink) RecordSnapshot(rec coremetrics.SnapshotRecord) error {
	s.avail.Set(rec.Avail)
	s.reserved.Set(rec.Reserved)
	s.budget.Set(rec.Budget)
	s.reservations.Set(float64(rec.Reservations))
	if rec.Mode == "night" {
		s.night.Set(1)
	} else {
		s.night.Set(0)
	}
	return nil
}

// RecordDecision counts an admission call.
func (s *PromSink) RecordDecision(rec coremetrics.DecisionRecord) error {
	s.decisions.WithLabelValues(rec.Op, rec.Code).Inc()
	return nil
}

// RecordRevocation counts a revocation and observes its latency.
func (s *PromSink) RecordRevocation(rec coremetrics.RevocationRecord) error {
	s.revocations.WithLabelValues(rec.Reason, strconv.FormatBool(rec.Delivered)).Inc()
	s.latency.Observe(rec.Latency.Seconds())
	return nil
}
