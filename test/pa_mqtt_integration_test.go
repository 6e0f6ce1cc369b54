package test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/pa/app"
	"github.com/kilianp07/pa/config"
	coremqtt "github.com/kilianp07/pa/core/mqtt"
	"github.com/kilianp07/pa/infra/mqtt"
	"github.com/kilianp07/pa/test/util"
)

// startAgent connects a consumer agent that acknowledges every revoke and
// forwards it on the returned channel.
func startAgent(t *testing.T, broker, name string) <-chan coremqtt.Request {
	t.Helper()
	cli, err := mqtt.NewPahoClient(mqtt.Config{Broker: broker, ClientID: name + "-agent"})
	require.NoError(t, err)
	t.Cleanup(cli.Disconnect)
	revokes := make(chan coremqtt.Request, 8)
	err = cli.Subscribe(coremqtt.RequestTopic(cli.Root(), name), func(_ string, payload []byte) {
		var req coremqtt.Request
		if json.Unmarshal(payload, &req) != nil || req.Func != coremqtt.FuncRevoke {
			return
		}
		rep, _ := json.Marshal(coremqtt.Reply{ID: req.ID, Status: coremqtt.StatusOK, Code: "ok"})
		go func() { _ = cli.Publish(req.ReplyTo, false, rep) }()
		revokes <- req
	})
	require.NoError(t, err)
	return revokes
}

func TestAdmissionOverMosquitto(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	broker := util.StartMosquitto(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	promAddr, err := util.FreeAddr()
	require.NoError(t, err)
	cfg := config.Default()
	cfg.MQTT.Broker = broker
	cfg.MQTT.ClientID = "pa-it"
	cfg.PA.Budget = 2000
	cfg.PA.IntervalSeconds = 1
	cfg.PA.SamplePeriodSeconds = 1
	cfg.API.Addr = "-"
	cfg.Metrics.PrometheusAddr = promAddr
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	revokes := startAgent(t, broker, "ev")

	svc, err := app.New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- svc.Run(runCtx) }()

	tester, err := mqtt.NewPahoClient(mqtt.Config{Broker: broker, ClientID: "tester"})
	require.NoError(t, err)
	defer tester.Disconnect()

	callPA := func(req coremqtt.Request) coremqtt.Reply {
		var rep coremqtt.Reply
		require.Eventually(t, func() bool {
			callCtx, c := context.WithTimeout(ctx, time.Second)
			defer c()
			var err error
			rep, err = tester.Call(callCtx, cfg.RPC.Name, req)
			return err == nil
		}, 10*time.Second, 100*time.Millisecond)
		return rep
	}

	rep := callPA(coremqtt.Request{Func: coremqtt.FuncReserve, Agent: "ev", Module: "charger", Item: "1", Amount: 1500, Priority: 2})
	require.True(t, rep.OK(), "reserve: %+v", rep)
	rep = callPA(coremqtt.Request{Func: coremqtt.FuncReserve, Agent: "ev", Module: "charger", Item: "2", Amount: 1000, Priority: 2})
	require.Equal(t, "denied_insufficient_power", rep.Code)

	rep = callPA(coremqtt.Request{Func: coremqtt.FuncRevokeAll})
	require.True(t, rep.OK())
	select {
	case req := <-revokes:
		require.Equal(t, "charger", req.Module)
		require.Equal(t, "1", req.Item)
		require.Equal(t, 1500.0, req.Amount)
	case <-time.After(10 * time.Second):
		t.Fatal("revoke not received")
	}
	require.Eventually(t, func() bool { return len(svc.Controller().Reservations()) == 0 }, 5*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		return util.MetricsContain("http://"+promAddr+"/metrics", "pa_tick_duration_seconds")
	}, 5*time.Second, 50*time.Millisecond)

	stop()
	require.NoError(t, <-done)
}
