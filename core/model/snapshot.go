package model

import "time"

// Snapshot is the externally visible controller state after a tick.
type Snapshot struct {
	Budget       float64       `json:"budget"`
	Reserved     float64       `json:"reserved"`
	Avail        float64       `json:"avail"`
	Mode         Mode          `json:"mode"`
	Deficit      bool          `json:"deficit"`
	DeficitSince time.Time     `json:"deficit_since,omitempty"`
	Reservations []Reservation `json:"reservations"`
	Time         time.Time     `json:"time"`
}

// Revocation is a reservation chosen for forced removal.
type Revocation struct {
	Reservation Reservation  `json:"reservation"`
	Reason      RevokeReason `json:"reason"`
}

// Immediate reports whether the consumer must stop without any grace period.
func (r Revocation) Immediate() bool { return r.Reason.Immediate() }
