package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"

	coremon "github.com/kilianp07/pa/core/monitoring"
)

type captureTransport struct {
	events []*sentry.Event
}

func (t *captureTransport) Configure(sentry.ClientOptions) {}
func (t *captureTransport) SendEvent(e *sentry.Event)      { t.events = append(t.events, e) }
func (t *captureTransport) Flush(time.Duration) bool       { return true }

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestSentryMonitorTags(t *testing.T) {
	tr := &captureTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Dsn: "https://key@example.com/1", Transport: tr})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	m := &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope())}
	m.CaptureException(errors.New("revoke failed"), map[string]string{"module": "mqtt", "agent": "ev"})
	m.CapturePanic("boom")
	if len(tr.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(tr.events))
	}
	if tr.events[0].Tags["agent"] != "ev" {
		t.Fatalf("missing tags: %+v", tr.events[0].Tags)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{TracesSampleRate: 2}).Validate(); err == nil {
		t.Fatalf("expected error")
	}
}
