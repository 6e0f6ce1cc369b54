// Package admission implements the power admission controller: the
// reserve/release/repri protocol, the per-tick power estimation and the
// deficit and battery-limit revocation policy.
package admission

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/kilianp07/pa/core/estimator"
	"github.com/kilianp07/pa/core/events"
	"github.com/kilianp07/pa/core/ledger"
	"github.com/kilianp07/pa/core/logger"
	"github.com/kilianp07/pa/core/model"
	"github.com/kilianp07/pa/core/schedule"
	"github.com/kilianp07/pa/core/telemetry"
)

// Revoker issues the outbound revoke call to the owner of a reservation.
type Revoker interface {
	Revoke(ctx context.Context, rev model.Revocation) error
}

// Source supplies the telemetry samples buffered since the last drain.
type Source interface {
	Drain() []telemetry.Sample
}

// Publisher receives admission events.
type Publisher interface {
	Publish(events.Event)
}

// Controller owns the ledger and the controller state. All mutations are
// serialized by one mutex.
type Controller struct {
	mu      sync.Mutex
	cfg     Config
	clock   clock.Clock
	log     logger.Logger
	src     Source
	revoker Revoker
	pub     Publisher

	ledger   *ledger.Ledger
	readings *telemetry.State
	est      *estimator.Estimator
	sched    *schedule.Selector

	avail        float64
	lastReserve  time.Time
	negPowerTime time.Time
	mode         model.Mode
	lastOut      string
}

// New creates a Controller. src, revoker, pub, clk and log may be nil.
func New(cfg Config, src Source, revoker Revoker, pub Publisher, clk clock.Clock, log logger.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	sched, err := schedule.NewSelector(cfg.DayStart, cfg.NightStart, cfg.Location, clk.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	c := &Controller{
		cfg:      cfg,
		clock:    clk,
		log:      logger.OrNop(log),
		src:      src,
		revoker:  revoker,
		pub:      pub,
		ledger:   ledger.New(),
		readings: telemetry.NewState(cfg.StaleAfter()),
		est: estimator.New(estimator.Config{
			Samples:       cfg.Samples(),
			FSPC:          cfg.FSPC,
			FSPCStartFrq:  cfg.FSPCStartFrq(),
			FSPCEndFrq:    cfg.FSPCEndFrq(),
			ProtectCharge: cfg.ProtectCharge,
		}),
		sched: sched,
	}
	if cfg.SamplePeriodSeconds > 0 && cfg.SamplePeriodSeconds < cfg.IntervalSeconds {
		c.log.Warnf("sample_period %ds shorter than interval %ds, using 1 sample", cfg.SamplePeriodSeconds, cfg.IntervalSeconds)
	}
	now := clk.Now()
	// The first reserve must not be rate limited.
	c.lastReserve = now.Add(-cfg.ReserveDelay())
	c.mode = c.currentMode(now)
	c.log.Infof("mode initialized to: %s", c.mode)
	c.recompute()
	return c, nil
}

func (c *Controller) currentMode(now time.Time) model.Mode {
	m, err := c.sched.Mode(now, c.cfg.NightBudget)
	if err != nil {
		c.log.Warnf("schedule: %v", err)
	}
	return m
}

func (c *Controller) budget() float64 {
	return schedule.EffectiveBudget(c.mode, c.cfg.Budget, c.cfg.NightBudget)
}

func (c *Controller) approveP1() bool {
	return schedule.EffectiveApproveP1(c.mode, c.cfg.ApproveP1, c.cfg.NightApproveP1)
}

// recompute refreshes avail from the ledger when a fixed budget is in force.
func (c *Controller) recompute() {
	b := c.budget()
	if b == 0 {
		return
	}
	c.avail = b - c.ledger.Reserved()
	if c.avail == 0 {
		c.avail = -1
	}
}

func (c *Controller) publish(ev events.Event) {
	if c.pub != nil {
		c.pub.Publish(ev)
	}
}

func (c *Controller) decision(op, id string, amount float64, pri int, err error) {
	c.publish(events.DecisionEvent{
		Op:       op,
		ID:       id,
		Amount:   amount,
		Priority: pri,
		Err:      err,
		Avail:    c.avail,
		Reserved: c.ledger.Reserved(),
		Time:     c.clock.Now(),
	})
}

// Reserve requests amount watts for agent/module/item.
func (c *Controller) Reserve(agent, module, item string, amount float64, priority int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := model.JoinID(agent, module, item)
	pri := model.ClampPriority(priority)
	err := c.reserve(id, amount, pri)
	c.decision(events.OpReserve, id, amount, pri, err)
	return err
}

func (c *Controller) reserve(id string, amount float64, pri int) error {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	now := c.clock.Now()
	c.log.Debugw("reserve", map[string]any{"id": id, "amount": amount, "priority": pri, "avail": c.avail})

	if c.cfg.BatteryLevelMin > 0 {
		if lvl := c.readings.Get(telemetry.BatteryLevel, now); lvl.Present && lvl.V < c.cfg.BatteryLevelMin {
			return fmt.Errorf("%w (%.1f%% < %.1f%%)", ErrDeniedLowBattery, lvl.V, c.cfg.BatteryLevelMin)
		}
	}

	// Refreshing an identical reservation replaces it.
	prev, replaced := c.ledger.Remove(id, amount)
	if replaced {
		c.recompute()
	}
	restore := func() {
		if replaced {
			c.ledger.Insert(prev)
			c.recompute()
		}
	}

	budget := c.budget()
	if budget == 0 {
		if wait := c.cfg.ReserveDelay() - now.Sub(c.lastReserve); wait > 0 {
			restore()
			return fmt.Errorf("%w: waiting for %d seconds before next reserve", ErrDeniedRateLimited, int(math.Ceil(wait.Seconds())))
		}
	}

	approveP1 := c.approveP1()
	if c.avail < amount && !(approveP1 && pri == 1) {
		restore()
		return ErrDeniedInsufficientPower
	}
	if c.avail < amount && budget == 0 && c.cfg.Limit > 0 {
		projected := math.Max(0, -c.avail) + (amount - math.Max(0, c.avail))
		if projected > c.cfg.Limit {
			restore()
			return fmt.Errorf("%w (%.1f > %.1f)", ErrDeniedLimitExceeded, projected, c.cfg.Limit)
		}
	}

	created := now
	if replaced {
		created = prev.Created
	}
	c.ledger.Insert(model.Reservation{ID: id, Amount: amount, Priority: pri, Created: created})
	c.lastReserve = now
	c.recompute()
	c.log.Infof("adding reservation for: id: %s, amount: %.1f, pri: %d", id, amount, pri)
	return nil
}

// Release gives back a reservation.
func (c *Controller) Release(agent, module, item string, amount float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := model.JoinID(agent, module, item)
	r, ok := c.ledger.Remove(id, amount)
	if !ok {
		err := fmt.Errorf("release: %w", ErrNotFound)
		c.decision(events.OpRelease, id, amount, 0, err)
		return err
	}
	c.lastReserve = c.clock.Now()
	c.recompute()
	c.log.Infof("removing reservation for: id: %s, amount: %.1f", id, amount)
	c.decision(events.OpRelease, id, amount, r.Priority, nil)
	return nil
}

// Repri changes the priority of an existing reservation, or reserves when
// none matches.
func (c *Controller) Repri(agent, module, item string, amount float64, priority int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := model.JoinID(agent, module, item)
	pri := model.ClampPriority(priority)
	var err error
	if c.ledger.SetPriority(id, amount, pri) {
		c.log.Infof("reprioritized: id: %s, amount: %.1f, pri: %d", id, amount, pri)
	} else {
		err = c.reserve(id, amount, pri)
	}
	c.decision(events.OpRepri, id, amount, pri, err)
	return err
}

// RevokeAll queues every active reservation for revocation on the next tick.
func (c *Controller) RevokeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.ledger.All() {
		if c.ledger.Enqueue(r, model.RevokeAll) {
			n++
		}
	}
	c.log.Infof("revoke_all: %d reservations queued", n)
	c.decision(events.OpRevokeAll, "", 0, 0, nil)
	return nil
}

// SetBudget changes the day budget and recomputes avail.
func (c *Controller) SetBudget(b float64) error {
	if b < 0 {
		return fmt.Errorf("%w: budget must not be negative", ErrConfigInvalid)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Budget = b
	c.log.Infof("new budget: %.1f", b)
	c.recompute()
	return nil
}

// SetNightBudget changes the night budget. A zero value disables night mode.
func (c *Controller) SetNightBudget(b float64) error {
	if b < 0 {
		return fmt.Errorf("%w: night_budget must not be negative", ErrConfigInvalid)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.NightBudget = b
	c.log.Infof("new night budget: %.1f", b)
	c.setMode(c.clock.Now())
	c.recompute()
	return nil
}

// SetSamplePeriod resizes the moving average and clears it.
func (c *Controller) SetSamplePeriod(seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("%w: sample_period must not be negative", ErrConfigInvalid)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.SamplePeriodSeconds = seconds
	c.est.Resize(c.cfg.Samples())
	c.log.Infof("samples: %d", c.est.Samples())
	return nil
}

// SetProtectCharge toggles charge protection.
func (c *Controller) SetProtectCharge(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.ProtectCharge = v
	c.est.SetProtectCharge(v)
}

// Avail returns the current available power.
func (c *Controller) Avail() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.avail
}

// Reservations returns a copy of the active reservations.
func (c *Controller) Reservations() []model.Reservation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.All()
}

// Readings returns the telemetry readings keyed by field name.
func (c *Controller) Readings() map[string]telemetry.Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readings.Readings()
}

// Snapshot returns the current externally visible state.
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() model.Snapshot {
	return model.Snapshot{
		Budget:       c.budget(),
		Reserved:     c.ledger.Reserved(),
		Avail:        c.avail,
		Mode:         c.mode,
		Deficit:      !c.negPowerTime.IsZero(),
		DeficitSince: c.negPowerTime,
		Reservations: c.ledger.All(),
		Time:         c.clock.Now(),
	}
}

// Shutdown clears the ledger without revoking.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := c.ledger.Clear()
	if len(dropped) > 0 {
		c.log.Infof("clearing %d reservations on shutdown", len(dropped))
	}
	c.recompute()
}
