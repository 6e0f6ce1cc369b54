// Package schedule selects the day or night operating mode from time-of-day
// boundaries and derives the effective budget and P1 policy for a mode.
package schedule

import (
	"fmt"
	"time"

	"github.com/kilianp07/pa/core/model"
)

// Selector decides the current mode.
type Selector struct {
	resolver   *Resolver
	dayStart   string
	nightStart string
}

// NewSelector validates the boundaries against the date of now.
func NewSelector(dayStart, nightStart, location string, now time.Time) (*Selector, error) {
	r, err := NewResolver(location)
	if err != nil {
		return nil, err
	}
	s := &Selector{resolver: r, dayStart: dayStart, nightStart: nightStart}
	if _, err := r.Resolve(dayStart, now); err != nil {
		return nil, fmt.Errorf("day_start: %w", err)
	}
	if _, err := r.Resolve(nightStart, now); err != nil {
		return nil, fmt.Errorf("night_start: %w", err)
	}
	return s, nil
}

// IsNight reports whether now falls into the night window.
func (s *Selector) IsNight(now time.Time) (bool, error) {
	ns, err := s.resolver.Resolve(s.nightStart, now)
	if err != nil {
		return false, err
	}
	ds, err := s.resolver.Resolve(s.dayStart, now)
	if err != nil {
		return false, err
	}
	return InWindow(now, ns, ds), nil
}

// Mode returns the mode at now. Night mode requires a night budget.
func (s *Selector) Mode(now time.Time, nightBudget float64) (model.Mode, error) {
	if nightBudget <= 0 {
		return model.ModeDay, nil
	}
	night, err := s.IsNight(now)
	if err != nil {
		return model.ModeDay, err
	}
	if night {
		return model.ModeNight, nil
	}
	return model.ModeDay, nil
}

// InWindow applies the crossing-midnight rule on times of day: when night
// starts at or after day start the window wraps past midnight.
func InWindow(now, nightStart, dayStart time.Time) bool {
	n := secondOfDay(now)
	ns := secondOfDay(nightStart.In(now.Location()))
	ds := secondOfDay(dayStart.In(now.Location()))
	if ns >= ds {
		return n >= ns || n < ds
	}
	return n >= ns && n < ds
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// EffectiveBudget returns the budget in force for the mode.
func EffectiveBudget(mode model.Mode, budget, nightBudget float64) float64 {
	if mode == model.ModeNight && nightBudget > 0 {
		return nightBudget
	}
	return budget
}

// EffectiveApproveP1 returns the P1 approval policy in force for the mode.
func EffectiveApproveP1(mode model.Mode, approveP1, nightApproveP1 bool) bool {
	if mode == model.ModeNight {
		return nightApproveP1
	}
	return approveP1
}
