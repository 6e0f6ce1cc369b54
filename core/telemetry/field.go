// Package telemetry tracks the per-field readings used to estimate available
// power. Readings carry a presence flag and a last-seen time so that stale
// data is treated as absent rather than as zero.
package telemetry

// Field identifies one telemetry metric.
type Field int

const (
	GridPower Field = iota
	LoadPower
	PVPower
	BatteryPower
	BatteryLevel
	Frequency
	ChargeMode
	numFields
)

// String returns the configuration name of the field.
func (f Field) String() string {
	switch f {
	case GridPower:
		return "grid_power"
	case LoadPower:
		return "load_power"
	case PVPower:
		return "pv_power"
	case BatteryPower:
		return "battery_power"
	case BatteryLevel:
		return "battery_level"
	case Frequency:
		return "frequency"
	case ChargeMode:
		return "charge_mode"
	default:
		return "unknown"
	}
}

// Fields lists every known field.
func Fields() []Field {
	out := make([]Field, 0, numFields)
	for f := Field(0); f < numFields; f++ {
		out = append(out, f)
	}
	return out
}
