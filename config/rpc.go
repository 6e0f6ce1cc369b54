package config

import "fmt"

// RPCConfig describes how the controller presents itself on the bus.
type RPCConfig struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// RevokeTimeoutSeconds bounds each outbound revoke attempt.
	RevokeTimeoutSeconds int    `json:"revoke_timeout"`
	RevokeRetries        int    `json:"revoke_retries"`
	PubTopic             string `json:"pub_topic"`
}

// SetDefaults applies default values under the given topic root.
func (c *RPCConfig) SetDefaults(root string) {
	if c.Name == "" {
		c.Name = "pa"
	}
	if c.Description == "" {
		c.Description = "Power Admission"
	}
	if c.RevokeTimeoutSeconds == 0 {
		c.RevokeTimeoutSeconds = 5
	}
	if c.RevokeRetries == 0 {
		c.RevokeRetries = 3
	}
	if c.PubTopic == "" {
		c.PubTopic = root + "/" + c.Name + "/state"
	}
}

// Validate checks mandatory fields.
func (c RPCConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.RevokeTimeoutSeconds < 0 || c.RevokeRetries < 0 {
		return fmt.Errorf("revoke_timeout and revoke_retries must not be negative")
	}
	return nil
}

// APIConfig configures the status HTTP API.
type APIConfig struct {
	// Addr is the listen address. "-" disables the API.
	Addr string `json:"addr"`
}

// SetDefaults applies default values.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// Enabled reports whether the API should be served.
func (c APIConfig) Enabled() bool { return c.Addr != "-" }
