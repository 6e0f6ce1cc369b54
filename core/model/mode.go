package model

import "fmt"

// Mode is the schedule mode of the controller.
type Mode int

const (
	ModeDay Mode = iota
	ModeNight
)

// String returns a human-readable representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeDay:
		return "day"
	case ModeNight:
		return "night"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so modes encode as strings.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText parses "day" or "night".
func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "day":
		*m = ModeDay
	case "night":
		*m = ModeNight
	default:
		return fmt.Errorf("unknown mode %q", b)
	}
	return nil
}

// RevokeReason tells why a reservation is being revoked.
type RevokeReason int

const (
	// RevokeDeficit is issued after a sustained negative balance.
	RevokeDeficit RevokeReason = iota
	// RevokeBatteryHardLimit is issued when battery discharge exceeds the hard limit.
	RevokeBatteryHardLimit
	// RevokeAll is issued by an explicit revoke_all request.
	RevokeAll
)

// String returns a human-readable representation of the reason.
func (r RevokeReason) String() string {
	switch r {
	case RevokeDeficit:
		return "deficit"
	case RevokeBatteryHardLimit:
		return "battery_hard_limit"
	case RevokeAll:
		return "revoke_all"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r RevokeReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RevokeReason) UnmarshalText(b []byte) error {
	for _, v := range []RevokeReason{RevokeDeficit, RevokeBatteryHardLimit, RevokeAll} {
		if v.String() == string(b) {
			*r = v
			return nil
		}
	}
	return fmt.Errorf("unknown revoke reason %q", b)
}

// Immediate reports whether the consumer must stop without any grace period.
func (r RevokeReason) Immediate() bool { return r == RevokeBatteryHardLimit }
