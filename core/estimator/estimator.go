// Package estimator derives the available site power from telemetry.
//
// Positive power means surplus, negative means the site is drawing from the
// grid or the battery. The instantaneous balance is smoothed with a fixed
// length moving average.
package estimator

import (
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/pa/core/telemetry"
)

// Config controls the balance computation.
type Config struct {
	// Samples is the moving average length.
	Samples int
	// FSPC enables frequency-shift power control correction of PV output.
	FSPC bool
	// FSPCStartFrq and FSPCEndFrq are absolute frequencies in Hz.
	FSPCStartFrq float64
	FSPCEndFrq   float64
	// ProtectCharge keeps battery charging power out of the available power.
	ProtectCharge bool
}

// Input holds the readings of one tick.
type Input struct {
	Grid       telemetry.Value
	Load       telemetry.Value
	PV         telemetry.Value
	Battery    telemetry.Value
	Frequency  telemetry.Value
	ChargeMode telemetry.Value
}

// Estimator keeps the moving average buffer.
type Estimator struct {
	cfg    Config
	values []float64
	idx    int
}

// New creates an Estimator. Samples below 1 are raised to 1.
func New(cfg Config) *Estimator {
	e := &Estimator{cfg: cfg}
	e.Resize(cfg.Samples)
	return e
}

// Resize changes the buffer length and clears it.
func (e *Estimator) Resize(samples int) {
	if samples < 1 {
		samples = 1
	}
	e.cfg.Samples = samples
	e.values = make([]float64, samples)
	e.idx = 0
}

// SetProtectCharge toggles charge protection.
func (e *Estimator) SetProtectCharge(v bool) { e.cfg.ProtectCharge = v }

// Samples returns the buffer length.
func (e *Estimator) Samples() int { return len(e.values) }

// Power computes the instantaneous balance without smoothing.
func (e *Estimator) Power(in Input) float64 {
	power := 0.0
	if in.Grid.Present && in.Grid.V < 0 {
		power += in.Grid.V
	}
	if in.Battery.Present && in.Battery.V < 0 {
		power += in.Battery.V
	}
	if !in.PV.Present {
		return power
	}
	pv := in.PV.V
	load := in.Load.V
	if !in.Load.Present {
		// Battery charging is not load: it can be redirected.
		used := 0.0
		if in.Grid.Present && in.Grid.V > 0 {
			used += in.Grid.V
		}
		load = pv - used
	}
	if e.cfg.FSPC && in.Frequency.Present && in.Frequency.V >= e.cfg.FSPCStartFrq {
		diff := e.cfg.FSPCEndFrq - in.Frequency.V
		if diff < 1 {
			diff = 1
		}
		pv /= diff
	}
	if pv > 0 {
		power += pv - load
	}
	if in.Battery.Present && in.Battery.V > 0 && !e.cfg.ProtectCharge {
		power += in.Battery.V
	}
	return power
}

// Add writes power into the buffer and returns the moving average.
func (e *Estimator) Add(power float64) float64 {
	e.values[e.idx] = power
	e.idx = (e.idx + 1) % len(e.values)
	return stat.Mean(e.values, nil)
}

// Charging reports whether the battery is being charged. The charge mode
// reading wins over the battery power sign when present.
func Charging(in Input) bool {
	if in.ChargeMode.Present {
		return in.ChargeMode.V == 1
	}
	return in.Battery.Present && in.Battery.V > 0
}

// Estimate runs one estimation step and returns the available power.
func (e *Estimator) Estimate(in Input) float64 {
	avail := e.Add(e.Power(in))
	if avail == 0 {
		avail = -1
	}
	if e.cfg.ProtectCharge && Charging(in) {
		avail = -1
	}
	return avail
}
