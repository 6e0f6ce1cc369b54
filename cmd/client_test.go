package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	coremqtt "github.com/kilianp07/pa/core/mqtt"
	"github.com/kilianp07/pa/infra/mqtt"
)

type fakeCaller struct {
	mqtt.MockCaller
	cfg          mqtt.Config
	disconnected bool
}

func (f *fakeCaller) Disconnect() { f.disconnected = true }

func setup(t *testing.T, reply func(string, coremqtt.Request) (coremqtt.Reply, error)) *fakeCaller {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "mqtt:\n  broker: \"tcp://localhost:1883\"\n  password: secret\nrpc:\n  name: site-pa\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	fc := &fakeCaller{}
	fc.Reply = reply
	orig := newCaller
	newCaller = func(cfg mqtt.Config) (caller, error) {
		fc.cfg = cfg
		return fc, nil
	}
	t.Cleanup(func() {
		newCaller = orig
		target = ""
	})
	cfgPath = path
	return fc
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReserveCommand(t *testing.T) {
	fc := setup(t, func(agent string, req coremqtt.Request) (coremqtt.Reply, error) {
		return coremqtt.Reply{ID: req.ID, Status: coremqtt.StatusOK, Code: "ok"}, nil
	})
	out, err := execute("reserve", "ev", "charger", "1", "1200", "2", "-c", cfgPath)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if strings.TrimSpace(out) != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
	if fc.Calls() != 1 || fc.Agents[0] != "site-pa" {
		t.Fatalf("unexpected calls %+v", fc.Agents)
	}
	req := fc.Requests[0]
	if req.Func != coremqtt.FuncReserve || req.Amount != 1200 || req.Priority != 2 || req.Module != "charger" {
		t.Fatalf("unexpected request %+v", req)
	}
	if !strings.HasPrefix(fc.cfg.ClientID, "pa-cli-") || !fc.disconnected {
		t.Fatalf("client not set up or closed: %+v", fc.cfg.ClientID)
	}
}

func TestReleaseDenied(t *testing.T) {
	setup(t, func(agent string, req coremqtt.Request) (coremqtt.Reply, error) {
		return coremqtt.Reply{ID: req.ID, Status: coremqtt.StatusError, Code: "not_found", Message: "reservation not found"}, nil
	})
	out, err := execute("release", "ev", "charger", "1", "1200", "--target", "other")
	if !errors.Is(err, coremqtt.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if !strings.Contains(out, "not_found") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRevokeAllTarget(t *testing.T) {
	fc := setup(t, nil)
	if _, err := execute("revoke-all", "--target", "pa2"); err != nil {
		t.Fatalf("revoke-all: %v", err)
	}
	if fc.Agents[0] != "pa2" || fc.Requests[0].Func != coremqtt.FuncRevokeAll {
		t.Fatalf("unexpected call %v %+v", fc.Agents, fc.Requests)
	}
}

func TestReserveBadAmount(t *testing.T) {
	setup(t, nil)
	if _, err := execute("reserve", "ev", "charger", "1", "lots", "2"); err == nil {
		t.Fatalf("expected parse error")
	}
}
