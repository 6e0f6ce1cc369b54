package telemetry

import (
	"fmt"

	"github.com/kilianp07/pa/core/telemetry"
)

// Config names the topics and payload properties the controller reads.
type Config struct {
	InverterTopic      string `json:"inverter_topic"`
	GridPowerProperty  string `json:"grid_power_property"`
	InvertGridPower    bool   `json:"invert_grid_power"`
	LoadPowerProperty  string `json:"load_power_property"`
	InvertLoadPower    bool   `json:"invert_load_power"`
	FrequencyProperty  string `json:"frequency_property"`
	ChargeModeProperty string `json:"charge_mode_property"`

	PVTopic         string `json:"pv_topic"`
	PVPowerProperty string `json:"pv_power_property"`
	InvertPVPower   bool   `json:"invert_pv_power"`

	BatteryTopic         string `json:"battery_topic"`
	BatteryPowerProperty string `json:"battery_power_property"`
	InvertBatteryPower   bool   `json:"invert_battery_power"`
	BatteryLevelProperty string `json:"battery_level_property"`

	// BufferSize bounds the samples queued between two ticks.
	BufferSize int `json:"buffer_size"`
}

// SetDefaults fills topics under root and the standard property names.
func (c *Config) SetDefaults(root string) {
	if c.InverterTopic == "" {
		c.InverterTopic = root + "/agents/si/data"
	}
	if c.PVTopic == "" {
		c.PVTopic = root + "/agents/pvc/data"
	}
	if c.BatteryTopic == "" {
		c.BatteryTopic = root + "/agents/si/data"
	}
	if c.GridPowerProperty == "" {
		c.GridPowerProperty = "input_power"
	}
	if c.LoadPowerProperty == "" {
		c.LoadPowerProperty = "load_power"
	}
	if c.FrequencyProperty == "" {
		c.FrequencyProperty = "output_frequency"
	}
	if c.ChargeModeProperty == "" {
		c.ChargeModeProperty = "charge_mode"
	}
	if c.PVPowerProperty == "" {
		c.PVPowerProperty = "output_power"
	}
	if c.BatteryPowerProperty == "" {
		c.BatteryPowerProperty = "battery_power"
	}
	if c.BatteryLevelProperty == "" {
		c.BatteryLevelProperty = "battery_level"
	}
	if c.BufferSize == 0 {
		c.BufferSize = 256
	}
}

// Validate checks that every source has a topic.
func (c Config) Validate() error {
	if c.InverterTopic == "" && c.PVTopic == "" && c.BatteryTopic == "" {
		return fmt.Errorf("telemetry: at least one topic is required")
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("telemetry: buffer_size must not be negative")
	}
	return nil
}

// Sources builds the telemetry sources. A source without topic is skipped.
func (c Config) Sources() []telemetry.Source {
	all := []telemetry.Source{
		{Name: "inverter", Topic: c.InverterTopic, Mappings: []telemetry.Mapping{
			{Field: telemetry.GridPower, Property: c.GridPowerProperty, Invert: c.InvertGridPower},
			{Field: telemetry.LoadPower, Property: c.LoadPowerProperty, Invert: c.InvertLoadPower},
			{Field: telemetry.Frequency, Property: c.FrequencyProperty},
			{Field: telemetry.ChargeMode, Property: c.ChargeModeProperty},
		}},
		{Name: "pv", Topic: c.PVTopic, Mappings: []telemetry.Mapping{
			{Field: telemetry.PVPower, Property: c.PVPowerProperty, Invert: c.InvertPVPower},
		}},
		{Name: "battery", Topic: c.BatteryTopic, Mappings: []telemetry.Mapping{
			{Field: telemetry.BatteryPower, Property: c.BatteryPowerProperty, Invert: c.InvertBatteryPower},
			{Field: telemetry.BatteryLevel, Property: c.BatteryLevelProperty},
		}},
	}
	out := all[:0]
	for _, s := range all {
		if s.Topic != "" {
			out = append(out, s)
		}
	}
	return out
}
