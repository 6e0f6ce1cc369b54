package audit

import (
	"fmt"
	"strings"
)

// Config selects and configures the audit backend.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies default values. An empty backend disables the audit log.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		return
	}
	if c.Path == "" {
		switch c.Backend {
		case "sqlite":
			c.Path = "pa_audit.db"
		default:
			c.Path = "pa_audit.jsonl"
		}
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 30
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "", "none", "jsonl", "rotating", "sqlite":
		return nil
	default:
		return fmt.Errorf("audit.backend %q not supported", c.Backend)
	}
}

// Enabled reports whether a backend is configured.
func (c Config) Enabled() bool {
	b := strings.ToLower(c.Backend)
	return b != "" && b != "none"
}

// NewStore opens the configured backend.
func NewStore(cfg Config) (LogStore, error) {
	cfg.SetDefaults()
	switch strings.ToLower(cfg.Backend) {
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("audit backend %q not supported", cfg.Backend)
	}
}
