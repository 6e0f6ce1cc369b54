package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/pa/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		out, err := effectiveYAML(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// effectiveYAML renders cfg with defaults applied and secrets masked. Keys
// follow the json tags used when loading.
func effectiveYAML(cfg *config.Config) ([]byte, error) {
	c := *cfg
	if c.MQTT.Password != "" {
		c.MQTT.Password = "***"
	}
	if c.Sentry.DSN != "" {
		c.Sentry.DSN = "***"
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return yaml.Marshal(m)
}
