package admission

import (
	"fmt"
	"time"
)

// Config defines the admission controller settings. Durations are in seconds.
type Config struct {
	Budget         float64 `json:"budget"`
	NightBudget    float64 `json:"night_budget"`
	ApproveP1      bool    `json:"approve_p1"`
	NightApproveP1 bool    `json:"night_approve_p1"`
	// Limit caps the deficit tolerated for P1 reservations. 0 disables the cap.
	Limit           float64 `json:"limit"`
	BatteryLevelMin float64 `json:"battery_level_min"`
	// BatterySoftLimit and BatteryHardLimit are discharge thresholds in watts.
	BatterySoftLimit float64 `json:"battery_soft_limit"`
	BatteryHardLimit float64 `json:"battery_hard_limit"`
	ProtectCharge    bool    `json:"protect_charge"`

	ReserveDelaySeconds   int `json:"reserve_delay"`
	DeficitTimeoutSeconds int `json:"deficit_timeout"`
	SamplePeriodSeconds   int `json:"sample_period"`
	IntervalSeconds       int `json:"interval"`
	// DataStaleInterval is the number of ticks after which a reading is absent.
	DataStaleInterval int `json:"data_stale_interval"`

	DayStart   string `json:"day_start"`
	NightStart string `json:"night_start"`
	Location   string `json:"location"`

	FSPC             bool    `json:"fspc"`
	FSPCStart        float64 `json:"fspc_start"`
	FSPCEnd          float64 `json:"fspc_end"`
	NominalFrequency float64 `json:"nominal_frequency"`
}

// DefaultConfig returns the settings applied to keys absent from the
// configuration file.
func DefaultConfig() Config {
	c := Config{ReserveDelaySeconds: 180, DeficitTimeoutSeconds: 300, DataStaleInterval: 3}
	c.SetDefaults()
	return c
}

// SetDefaults applies the defaults for unset values. The reserve delay, the
// deficit timeout and the stale interval accept 0 and are only defaulted by
// DefaultConfig.
func (c *Config) SetDefaults() {
	if c.SamplePeriodSeconds == 0 {
		c.SamplePeriodSeconds = 90
	}
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = 15
	}
	if c.DayStart == "" {
		c.DayStart = "06:00"
	}
	if c.NightStart == "" {
		c.NightStart = "20:00"
	}
	if c.FSPCStart == 0 && c.FSPCEnd == 0 {
		c.FSPCStart = 1
		c.FSPCEnd = 2
	}
	if c.NominalFrequency == 0 {
		c.NominalFrequency = 60
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Budget < 0 || c.NightBudget < 0 {
		return fmt.Errorf("%w: budgets must not be negative", ErrConfigInvalid)
	}
	if c.Limit < 0 || c.BatterySoftLimit < 0 || c.BatteryHardLimit < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrConfigInvalid)
	}
	if c.BatteryLevelMin < 0 || c.BatteryLevelMin > 100 {
		return fmt.Errorf("%w: battery_level_min must be within 0..100", ErrConfigInvalid)
	}
	if c.ReserveDelaySeconds < 0 || c.DeficitTimeoutSeconds < 0 || c.SamplePeriodSeconds < 0 || c.DataStaleInterval < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrConfigInvalid)
	}
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrConfigInvalid)
	}
	if c.FSPC && c.FSPCStart > c.FSPCEnd {
		return fmt.Errorf("%w: fspc_start must be < fspc_end", ErrConfigInvalid)
	}
	return nil
}

// Interval returns the tick interval.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// ReserveDelay returns the minimum time between reservations without budget.
func (c Config) ReserveDelay() time.Duration {
	return time.Duration(c.ReserveDelaySeconds) * time.Second
}

// DeficitTimeout returns how long a deficit is tolerated before revoking.
func (c Config) DeficitTimeout() time.Duration {
	return time.Duration(c.DeficitTimeoutSeconds) * time.Second
}

// Samples returns the moving average length, at least 1.
func (c Config) Samples() int {
	if c.IntervalSeconds <= 0 {
		return 1
	}
	n := c.SamplePeriodSeconds / c.IntervalSeconds
	if n < 1 {
		return 1
	}
	return n
}

// StaleAfter returns the age at which a reading is no longer used.
func (c Config) StaleAfter() time.Duration {
	return time.Duration(c.DataStaleInterval) * c.Interval()
}

// FSPCStartFrq returns the absolute frequency at which PV curtailment starts.
func (c Config) FSPCStartFrq() float64 { return c.NominalFrequency + c.FSPCStart }

// FSPCEndFrq returns the absolute frequency at which PV output reaches zero.
func (c Config) FSPCEndFrq() float64 { return c.NominalFrequency + c.FSPCEnd }
