// Package audit keeps an append-only history of admission decisions,
// revocations and schedule switches.
package audit

import (
	"context"
	"time"
)

// Record kinds.
const (
	KindDecision   = "decision"
	KindRevocation = "revocation"
	KindMode       = "mode"
)

// Record captures one admission event.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Op        string    `json:"op,omitempty"`
	ID        string    `json:"id,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	Priority  int       `json:"priority,omitempty"`
	Code      string    `json:"code,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Immediate bool      `json:"immediate,omitempty"`
	Error     string    `json:"error,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	Avail     float64   `json:"avail"`
	Reserved  float64   `json:"reserved"`
}

// Query filters records. Zero fields match everything. Limit keeps the most
// recent records.
type Query struct {
	Start time.Time
	End   time.Time
	Agent string
	Kind  string
	Limit int
}

// LogStore persists Records and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

func (q Query) matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Agent != "" && r.Agent != q.Agent {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	return true
}

func (q Query) limit(recs []Record) []Record {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}
