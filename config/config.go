package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/pa/core/admission"
	"github.com/kilianp07/pa/core/audit"
	"github.com/kilianp07/pa/core/metrics"
	"github.com/kilianp07/pa/infra/logger"
	"github.com/kilianp07/pa/infra/monitoring"
	"github.com/kilianp07/pa/infra/mqtt"
	"github.com/kilianp07/pa/infra/telemetry"
)

// ErrInvalid is wrapped by every validation error returned from Load.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	MQTT      mqtt.Config       `json:"mqtt"`
	PA        admission.Config  `json:"pa"`
	Telemetry telemetry.Config  `json:"telemetry"`
	RPC       RPCConfig         `json:"rpc"`
	Metrics   metrics.Config    `json:"metrics"`
	Audit     audit.Config      `json:"audit"`
	API       APIConfig         `json:"api"`
	Log       logger.Config     `json:"log"`
	Sentry    monitoring.Config `json:"sentry"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, K_SECTION__KEY
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaults holds the keys for which 0 is a meaningful value and therefore
// cannot be defaulted after unmarshalling.
func defaults() map[string]any {
	pa := admission.DefaultConfig()
	return map[string]any{
		"pa.reserve_delay":       pa.ReserveDelaySeconds,
		"pa.deficit_timeout":     pa.DeficitTimeoutSeconds,
		"pa.data_stale_interval": pa.DataStaleInterval,
	}
}

// Default returns a Config holding the defaults of every section.
func Default() *Config {
	c := &Config{PA: admission.DefaultConfig()}
	c.SetDefaults()
	return c
}

// SetDefaults applies the defaults of every section. Telemetry topics are
// placed under the MQTT topic root.
func (c *Config) SetDefaults() {
	c.MQTT.SetDefaults()
	c.PA.SetDefaults()
	c.Telemetry.SetDefaults(c.MQTT.TopicRoot)
	c.RPC.SetDefaults(c.MQTT.TopicRoot)
	c.Audit.SetDefaults()
	c.API.SetDefaults()
	c.Log.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []struct {
		section string
		fn      func() error
	}{
		{"mqtt", c.MQTT.Validate},
		{"pa", c.PA.Validate},
		{"telemetry", c.Telemetry.Validate},
		{"rpc", c.RPC.Validate},
		{"audit", c.Audit.Validate},
		{"log", c.Log.Validate},
		{"sentry", c.Sentry.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, ch.section, err)
		}
	}
	return nil
}
