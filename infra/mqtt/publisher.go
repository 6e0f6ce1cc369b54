package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kilianp07/pa/core/events"
	"github.com/kilianp07/pa/core/model"
	coremqtt "github.com/kilianp07/pa/core/mqtt"
	"github.com/kilianp07/pa/infra/logger"
	"github.com/kilianp07/pa/internal/eventbus"
)

// SnapshotMessage is the JSON published on the snapshot topic every tick.
type SnapshotMessage struct {
	Budget       float64             `json:"budget"`
	Reserved     float64             `json:"reserved"`
	Avail        float64             `json:"avail"`
	Mode         model.Mode          `json:"mode"`
	Reservations []model.Reservation `json:"reservations"`
}

// StartSnapshotPublisher publishes every SnapshotEvent on topic until ctx is
// canceled.
func StartSnapshotPublisher(ctx context.Context, bus eventbus.Subscriber[events.Event], pub coremqtt.Publisher, topic string, log logger.Logger) {
	if bus == nil || pub == nil || topic == "" {
		return
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				e, ok := ev.(events.SnapshotEvent)
				if !ok {
					continue
				}
				s := e.Snapshot
				msg := SnapshotMessage{Budget: s.Budget, Reserved: s.Reserved, Avail: s.Avail, Mode: s.Mode, Reservations: s.Reservations}
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Errorf("encode snapshot: %v", err)
					continue
				}
				if err := pub.Publish(topic, false, payload); err != nil {
					log.Warnf("publish snapshot: %v", err)
				}
			}
		}
	}()
}

// MockTransport records publications and lets tests inject messages.
type MockTransport struct {
	mu        sync.Mutex
	Published map[string][][]byte
	Retained  map[string]bool
	handlers  map[string]Handler
	Fail      bool
}

// NewMockTransport creates an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Published: make(map[string][][]byte),
		Retained:  make(map[string]bool),
		handlers:  make(map[string]Handler),
	}
}

// Subscribe records the handler.
func (m *MockTransport) Subscribe(topic string, h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = h
	return nil
}

// Publish records the payload or fails when Fail is set.
func (m *MockTransport) Publish(topic string, retained bool, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("%w: publish failed", coremqtt.ErrTransport)
	}
	m.Published[topic] = append(m.Published[topic], payload)
	m.Retained[topic] = retained
	return nil
}

// Deliver invokes the handler subscribed to topic. It reports whether one
// was found.
func (m *MockTransport) Deliver(topic string, payload []byte) bool {
	m.mu.Lock()
	h, ok := m.handlers[topic]
	m.mu.Unlock()
	if ok {
		h(topic, payload)
	}
	return ok
}

// Messages returns a copy of the payloads published on topic.
func (m *MockTransport) Messages(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.Published[topic]...)
}

// MockCaller answers calls from a function, recording the requests.
type MockCaller struct {
	mu       sync.Mutex
	Requests []coremqtt.Request
	Agents   []string
	Reply    func(agent string, req coremqtt.Request) (coremqtt.Reply, error)
}

// Call records the request and returns the configured reply.
func (m *MockCaller) Call(ctx context.Context, agent string, req coremqtt.Request) (coremqtt.Reply, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.Agents = append(m.Agents, agent)
	reply := m.Reply
	m.mu.Unlock()
	if reply == nil {
		return coremqtt.Reply{ID: req.ID, Status: coremqtt.StatusOK}, nil
	}
	if err := ctx.Err(); err != nil {
		return coremqtt.Reply{}, fmt.Errorf("%w: %v", coremqtt.ErrReplyTimeout, err)
	}
	return reply(agent, req)
}

// Calls returns the number of calls made.
func (m *MockCaller) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
