package metrics

import "time"

// SnapshotRecord is the controller state at the end of a tick.
type SnapshotRecord struct {
	Budget       float64
	Reserved     float64
	Avail        float64
	Mode         string
	Deficit      bool
	Reservations int
	Time         time.Time
}

// MetricsSink records controller snapshots.
type MetricsSink interface {
	RecordSnapshot(rec SnapshotRecord) error
}

// DecisionRecord captures one inbound reserve/release/repri/revoke_all call.
type DecisionRecord struct {
	Op       string
	ID       string
	Agent    string
	Amount   float64
	Priority int
	Granted  bool
	Code     string
	Time     time.Time
}

// DecisionRecorder records admission decisions.
type DecisionRecorder interface {
	RecordDecision(rec DecisionRecord) error
}

// RevocationRecord captures one outbound revoke call.
type RevocationRecord struct {
	ID        string
	Agent     string
	Amount    float64
	Priority  int
	Reason    string
	Immediate bool
	Delivered bool
	Error     string
	Latency   time.Duration
	Time      time.Time
}

// RevocationRecorder records revocations.
type RevocationRecorder interface {
	RecordRevocation(rec RevocationRecord) error
}

// ModeRecord captures a day/night switch.
type ModeRecord struct {
	From string
	To   string
	Time time.Time
}

// ModeRecorder records schedule mode changes.
type ModeRecorder interface {
	RecordMode(rec ModeRecord) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSnapshot(SnapshotRecord) error     { return nil }
func (NopSink) RecordDecision(DecisionRecord) error     { return nil }
func (NopSink) RecordRevocation(RevocationRecord) error { return nil }
func (NopSink) RecordMode(ModeRecord) error             { return nil }
