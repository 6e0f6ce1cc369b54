package events

import (
	"time"

	"github.com/kilianp07/pa/core/model"
)

// Event is implemented by every admission event.
type Event interface {
	EventName() string
}

// Operation names carried by DecisionEvent.
const (
	OpReserve   = "reserve"
	OpRelease   = "release"
	OpRepri     = "repri"
	OpRevokeAll = "revoke_all"
)

// DecisionEvent is published for every inbound admission call.
type DecisionEvent struct {
	Op       string
	ID       string
	Amount   float64
	Priority int
	Err      error
	Avail    float64
	Reserved float64
	Time     time.Time
}

func (DecisionEvent) EventName() string { return "decision" }

// Granted reports whether the call succeeded.
func (e DecisionEvent) Granted() bool { return e.Err == nil }

// RevocationEvent is published after an outbound revoke completes.
type RevocationEvent struct {
	Revocation model.Revocation
	Err        error
	Latency    time.Duration
	Time       time.Time
}

func (RevocationEvent) EventName() string { return "revocation" }

// ModeEvent is published when the schedule mode changes.
type ModeEvent struct {
	From model.Mode
	To   model.Mode
	Time time.Time
}

func (ModeEvent) EventName() string { return "mode" }

// SnapshotEvent carries the state at the end of a tick.
type SnapshotEvent struct {
	Snapshot model.Snapshot
}

func (SnapshotEvent) EventName() string { return "snapshot" }
