package telemetry

import "time"

// Value is an optional reading.
type Value struct {
	V       float64
	Present bool
}

// Some returns a present value.
func Some(v float64) Value { return Value{V: v, Present: true} }

// Reading is the last known value of a field.
type Reading struct {
	Value    float64   `json:"value"`
	LastSeen time.Time `json:"last_seen"`
	// Updated is set when the field was received during the current tick.
	Updated bool `json:"updated"`
}

// Sample is one decoded telemetry message.
type Sample struct {
	Source string
	Values map[Field]float64
	Time   time.Time
}

// State holds the readings of every field.
type State struct {
	readings   [numFields]Reading
	staleAfter time.Duration
}

// NewState returns a State treating readings older than staleAfter as absent.
// A zero staleAfter disables the staleness check.
func NewState(staleAfter time.Duration) *State {
	return &State{staleAfter: staleAfter}
}

// SetStaleAfter changes the staleness window.
func (s *State) SetStaleAfter(d time.Duration) { s.staleAfter = d }

// BeginTick clears the per-tick update flags.
func (s *State) BeginTick() {
	for i := range s.readings {
		s.readings[i].Updated = false
	}
}

// Apply records the values of a sample.
func (s *State) Apply(sm Sample) {
	for f, v := range sm.Values {
		if f < 0 || f >= numFields {
			continue
		}
		s.readings[f] = Reading{Value: v, LastSeen: sm.Time, Updated: true}
	}
}

// Get returns the field value if it was ever seen and is not stale at now.
func (s *State) Get(f Field, now time.Time) Value {
	if f < 0 || f >= numFields {
		return Value{}
	}
	r := s.readings[f]
	if r.LastSeen.IsZero() {
		return Value{}
	}
	if s.staleAfter > 0 && now.Sub(r.LastSeen) >= s.staleAfter {
		return Value{}
	}
	return Some(r.Value)
}

// UpdatedThisTick reports whether the field was received since BeginTick.
func (s *State) UpdatedThisTick(f Field) bool {
	if f < 0 || f >= numFields {
		return false
	}
	return s.readings[f].Updated
}

// Readings returns a copy of all readings keyed by field name.
func (s *State) Readings() map[string]Reading {
	out := make(map[string]Reading, numFields)
	for _, f := range Fields() {
		if !s.readings[f].LastSeen.IsZero() {
			out[f.String()] = s.readings[f]
		}
	}
	return out
}
