package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kilianp07/pa/config"
	coremqtt "github.com/kilianp07/pa/core/mqtt"
	"github.com/kilianp07/pa/infra/mqtt"
)

type caller interface {
	coremqtt.Caller
	Disconnect()
}

var newCaller = func(cfg mqtt.Config) (caller, error) {
	return mqtt.NewPahoClient(cfg)
}

var (
	target      string
	callTimeout time.Duration
)

var reserveCmd = &cobra.Command{
	Use:   "reserve <agent> <module> <item> <amount> <priority>",
	Short: "Request a power reservation",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[3])
		if err != nil {
			return err
		}
		pri, err := strconv.Atoi(args[4])
		if err != nil {
			return fmt.Errorf("priority: %w", err)
		}
		return call(cmd, coremqtt.Request{Func: coremqtt.FuncReserve, Agent: args[0], Module: args[1], Item: args[2], Amount: amount, Priority: pri})
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release <agent> <module> <item> <amount>",
	Short: "Release a reservation",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[3])
		if err != nil {
			return err
		}
		return call(cmd, coremqtt.Request{Func: coremqtt.FuncRelease, Agent: args[0], Module: args[1], Item: args[2], Amount: amount})
	},
}

var repriCmd = &cobra.Command{
	Use:   "repri <agent> <module> <item> <amount> <priority>",
	Short: "Change the priority of a reservation",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[3])
		if err != nil {
			return err
		}
		pri, err := strconv.Atoi(args[4])
		if err != nil {
			return fmt.Errorf("priority: %w", err)
		}
		return call(cmd, coremqtt.Request{Func: coremqtt.FuncRepri, Agent: args[0], Module: args[1], Item: args[2], Amount: amount, Priority: pri})
	},
}

var revokeAllCmd = &cobra.Command{
	Use:   "revoke-all",
	Short: "Revoke every reservation on the next tick",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, coremqtt.Request{Func: coremqtt.FuncRevokeAll})
	},
}

func init() {
	for _, c := range []*cobra.Command{reserveCmd, releaseCmd, repriCmd, revokeAllCmd} {
		c.Flags().StringVar(&target, "target", "", "name of the PA agent (defaults to rpc.name)")
		c.Flags().DurationVar(&callTimeout, "timeout", 5*time.Second, "reply timeout")
		rootCmd.AddCommand(c)
	}
}

func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("amount: %w", err)
	}
	return v, nil
}

func call(cmd *cobra.Command, req coremqtt.Request) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = "pa-cli-" + uuid.NewString()[:8]
	mqttCfg.LWTTopic = ""
	c, err := newCaller(mqttCfg)
	if err != nil {
		return err
	}
	defer c.Disconnect()

	name := target
	if name == "" {
		name = cfg.RPC.Name
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	rep, err := c.Call(ctx, name, req)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), rep.Code); err != nil {
		return err
	}
	return rep.Err()
}
