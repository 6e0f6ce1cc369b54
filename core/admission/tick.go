package admission

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/pa/core/estimator"
	"github.com/kilianp07/pa/core/events"
	"github.com/kilianp07/pa/core/model"
	"github.com/kilianp07/pa/core/telemetry"
)

// Tick runs one control cycle: drain telemetry, select the schedule mode,
// estimate avail, apply battery limits and the deficit policy, then execute
// the collected revocations outside the lock. It returns the snapshot taken
// once the ledger mutations are done.
func (c *Controller) Tick(ctx context.Context) model.Snapshot {
	start := c.clock.Now()
	revs, snap := c.evaluate(start)
	tickDuration.Observe(c.clock.Since(start).Seconds())

	c.execute(ctx, revs)
	c.publish(events.SnapshotEvent{Snapshot: snap})
	return snap
}

func (c *Controller) evaluate(now time.Time) ([]model.Revocation, model.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.readings.BeginTick()
	if c.src != nil {
		for _, s := range c.src.Drain() {
			c.readings.Apply(s)
		}
	}

	c.setMode(now)
	if c.budget() == 0 {
		c.avail = c.est.Estimate(c.input(now))
	} else {
		c.recompute()
	}

	revs, softLimited := c.checkBattery(now)
	if len(revs) > 0 {
		c.recompute()
	}
	c.checkDeficit(now)
	revs = append(revs, c.ledger.Drain()...)
	if len(revs) > 0 {
		c.recompute()
	}
	// The soft limit holds for the whole tick, whatever was released.
	if softLimited {
		c.avail = -1
	}
	pendingRevokes.Set(float64(len(revs)))

	c.logState()
	return revs, c.snapshot()
}

func (c *Controller) input(now time.Time) estimator.Input {
	in := estimator.Input{
		Grid:       c.readings.Get(telemetry.GridPower, now),
		Load:       c.readings.Get(telemetry.LoadPower, now),
		PV:         c.readings.Get(telemetry.PVPower, now),
		Battery:    c.readings.Get(telemetry.BatteryPower, now),
		Frequency:  c.readings.Get(telemetry.Frequency, now),
		ChargeMode: c.readings.Get(telemetry.ChargeMode, now),
	}
	if !in.Frequency.Present {
		in.Frequency = telemetry.Some(c.cfg.NominalFrequency)
	}
	return in
}

// setMode switches between day and night. A switch never revokes.
func (c *Controller) setMode(now time.Time) {
	m := c.currentMode(now)
	if m == c.mode {
		return
	}
	c.log.Infof("switching to %s mode", m)
	c.publish(events.ModeEvent{From: c.mode, To: m, Time: now})
	c.mode = m
	c.recompute()
}

// checkBattery applies the discharge limits. It returns the hard-limit
// revocations, if any, and whether the soft limit forced avail to -1.
func (c *Controller) checkBattery(now time.Time) ([]model.Revocation, bool) {
	if !c.readings.UpdatedThisTick(telemetry.BatteryPower) || !c.readings.UpdatedThisTick(telemetry.GridPower) {
		return nil, false
	}
	battery := c.readings.Get(telemetry.BatteryPower, now)
	grid := c.readings.Get(telemetry.GridPower, now)
	if !battery.Present || !grid.Present || battery.V >= 0 || grid.V < 0 {
		return nil, false
	}
	discharge := -battery.V
	switch {
	case c.cfg.BatteryHardLimit > 0 && discharge > c.cfg.BatteryHardLimit:
		if c.ledger.Len() == 0 {
			return nil, false
		}
		c.log.Warnf("battery discharge %.1f exceeds hard limit %.1f, revoking all", discharge, c.cfg.BatteryHardLimit)
		return c.ledger.TakeAll(model.RevokeBatteryHardLimit), false
	case c.cfg.BatterySoftLimit > 0 && discharge > c.cfg.BatterySoftLimit:
		c.log.Debugf("battery discharge %.1f exceeds soft limit %.1f", discharge, c.cfg.BatterySoftLimit)
		c.avail = -1
		return nil, true
	}
	return nil, false
}

func (c *Controller) checkDeficit(now time.Time) {
	if c.avail >= 0 {
		if !c.negPowerTime.IsZero() {
			c.log.Infof("deficit cleared after %s", now.Sub(c.negPowerTime).Round(time.Second))
		}
		c.negPowerTime = time.Time{}
		deficitSeconds.Set(0)
		return
	}
	if c.negPowerTime.IsZero() {
		c.negPowerTime = now
		c.log.Debugf("deficit started: avail %.1f", c.avail)
	}
	elapsed := now.Sub(c.negPowerTime)
	deficitSeconds.Set(elapsed.Seconds())
	if elapsed < c.cfg.DeficitTimeout() {
		return
	}
	approveP1 := c.approveP1()
	overLimit := c.cfg.Limit > 0 && math.Abs(c.avail) > c.cfg.Limit
	for _, r := range c.ledger.All() {
		if r.Priority == model.MinPriority && approveP1 && !overLimit {
			continue
		}
		if c.ledger.Enqueue(r, model.RevokeDeficit) {
			c.log.Infof("queueing %s for revoke: avail %.1f for %s", r, c.avail, elapsed.Round(time.Second))
		}
	}
}

// logState logs the reserved/avail line when it differs from the last one.
func (c *Controller) logState() {
	out := fmt.Sprintf("reserved: %.1f, avail: %.1f", c.ledger.Reserved(), c.avail)
	if out != c.lastOut {
		c.log.Infof("%s", out)
		c.lastOut = out
	}
}
