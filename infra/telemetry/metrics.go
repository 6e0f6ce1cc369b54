package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	messagesReceived *prometheus.CounterVec
	decodeErrors     *prometheus.CounterVec
	samplesDropped   prometheus.Counter
)

func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter) {
	msgs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pa_telemetry_messages_total",
		Help: "Telemetry samples received per source",
	}, []string{"source"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pa_telemetry_decode_errors_total",
		Help: "Telemetry payloads that could not be decoded",
	}, []string{"topic"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pa_telemetry_dropped_total",
		Help: "Samples dropped because the tick buffer was full",
	})
	return msgs, errs, dropped
}

func init() {
	messagesReceived, decodeErrors, samplesDropped = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers telemetry metrics on reg, or the default
// registerer when reg is nil.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(messagesReceived, decodeErrors, samplesDropped)
}

// ResetMetrics recreates the collectors for tests.
func ResetMetrics(reg prometheus.Registerer) {
	messagesReceived, decodeErrors, samplesDropped = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
