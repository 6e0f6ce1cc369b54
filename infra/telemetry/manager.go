// Package telemetry subscribes to the configured MQTT telemetry topics and
// buffers decoded samples until the controller drains them at tick start.
package telemetry

import (
	"github.com/benbjohnson/clock"

	"github.com/kilianp07/pa/core/telemetry"
	"github.com/kilianp07/pa/infra/logger"
	"github.com/kilianp07/pa/infra/mqtt"
)

// Subscriber registers topic handlers.
type Subscriber interface {
	Subscribe(topic string, h mqtt.Handler) error
}

// Manager decodes telemetry messages into samples.
type Manager struct {
	byTopic map[string][]telemetry.Source
	topics  []string
	ch      chan telemetry.Sample
	clock   clock.Clock
	log     logger.Logger
}

// NewManager creates a Manager for the given sources. clk and log may be nil.
func NewManager(sources []telemetry.Source, buffer int, clk clock.Clock, log logger.Logger) *Manager {
	if buffer < 1 {
		buffer = 1
	}
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	m := &Manager{byTopic: make(map[string][]telemetry.Source), ch: make(chan telemetry.Sample, buffer), clock: clk, log: log}
	for _, s := range sources {
		if _, ok := m.byTopic[s.Topic]; !ok {
			m.topics = append(m.topics, s.Topic)
		}
		m.byTopic[s.Topic] = append(m.byTopic[s.Topic], s)
	}
	return m
}

// Start subscribes to every telemetry topic once.
func (m *Manager) Start(sub Subscriber) error {
	for _, topic := range m.topics {
		if err := sub.Subscribe(topic, m.Handle); err != nil {
			return err
		}
		m.log.Infof("subscribed to telemetry topic %s", topic)
	}
	return nil
}

// Handle decodes one message and queues a sample per matching source.
func (m *Manager) Handle(topic string, payload []byte) {
	sources, ok := m.byTopic[topic]
	if !ok {
		return
	}
	data, err := telemetry.Decode(payload)
	if err != nil {
		decodeErrors.WithLabelValues(topic).Inc()
		m.log.Warnf("%s: %v", topic, err)
		return
	}
	now := m.clock.Now()
	for _, src := range sources {
		values := telemetry.Extract(src, data)
		if len(values) == 0 {
			continue
		}
		select {
		case m.ch <- telemetry.Sample{Source: src.Name, Values: values, Time: now}:
			messagesReceived.WithLabelValues(src.Name).Inc()
		default:
			samplesDropped.Inc()
			m.log.Warnf("telemetry buffer full, dropping %s sample", src.Name)
		}
	}
}

// Drain returns every queued sample in arrival order without blocking.
func (m *Manager) Drain() []telemetry.Sample {
	var out []telemetry.Sample
	for {
		select {
		case s := <-m.ch:
			out = append(out, s)
		default:
			return out
		}
	}
}
