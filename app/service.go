package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	papi "github.com/kilianp07/pa/api/pa"
	"github.com/kilianp07/pa/config"
	"github.com/kilianp07/pa/core/admission"
	"github.com/kilianp07/pa/core/audit"
	"github.com/kilianp07/pa/core/events"
	coremetrics "github.com/kilianp07/pa/core/metrics"
	"github.com/kilianp07/pa/core/monitoring"
	coremqtt "github.com/kilianp07/pa/core/mqtt"
	"github.com/kilianp07/pa/infra/logger"
	"github.com/kilianp07/pa/infra/metrics"
	"github.com/kilianp07/pa/infra/mqtt"
	"github.com/kilianp07/pa/infra/telemetry"
	"github.com/kilianp07/pa/internal/eventbus"
)

// Version is reported in the agent info message.
var Version = "dev"

// Client is the MQTT surface used by the service.
type Client interface {
	mqtt.Transport
	coremqtt.Caller
}

// Service wires the admission controller to MQTT, telemetry, metrics, the
// audit log and the status API.
type Service struct {
	cfg       *config.Config
	clock     clock.Clock
	log       logger.Logger
	client    Client
	closer    func()
	bus       *eventbus.Bus[events.Event]
	ctrl      *admission.Controller
	telemetry *telemetry.Manager
	server    *mqtt.Server
	sink      coremetrics.MetricsSink
	store     audit.LogStore
}

// New connects to the broker and creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	client, err := mqtt.NewPahoClient(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	svc, err := NewWithClient(cfg, client, clock.New())
	if err != nil {
		client.Disconnect()
		return nil, err
	}
	svc.closer = client.Disconnect
	return svc, nil
}

// NewWithClient creates a Service on an existing client and clock.
func NewWithClient(cfg *config.Config, client Client, clk clock.Clock) (*Service, error) {
	log := logger.New("service")
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	var store audit.LogStore
	if cfg.Audit.Enabled() {
		if store, err = audit.NewStore(cfg.Audit); err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
	}

	bus := eventbus.New[events.Event]()
	tm := telemetry.NewManager(cfg.Telemetry.Sources(), cfg.Telemetry.BufferSize, clk, logger.New("telemetry"))
	revoker := mqtt.NewRevoker(client, cfg.RPC.RevokeRetries,
		time.Duration(cfg.RPC.RevokeTimeoutSeconds)*time.Second, logger.New("revoker"))
	ctrl, err := admission.New(cfg.PA, tm, revoker, bus, clk, logger.New("admission"))
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	info := mqtt.Info{Name: cfg.RPC.Name, Role: "pa", Description: cfg.RPC.Description, Version: Version}
	server := mqtt.NewServer(client, cfg.MQTT.TopicRoot, info, ctrl, logger.New("rpc"))

	return &Service{
		cfg:       cfg,
		clock:     clk,
		log:       log,
		client:    client,
		bus:       bus,
		ctrl:      ctrl,
		telemetry: tm,
		server:    server,
		sink:      sink,
		store:     store,
	}, nil
}

// Controller returns the admission controller.
func (s *Service) Controller() *admission.Controller { return s.ctrl }

// Run starts every component and blocks until the context is canceled or one
// of them fails. Reservations are cleared on return.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics"))
	audit.StartRecorder(ctx, s.bus, s.store, logger.New("audit"))
	mqtt.StartSnapshotPublisher(ctx, s.bus, s.client, s.cfg.RPC.PubTopic, logger.New("publisher"))

	if err := s.telemetry.Start(s.client); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	g.Go(func() error { return s.server.Run(ctx) })
	g.Go(func() error {
		s.loop(ctx)
		return nil
	})
	if s.cfg.API.Enabled() {
		g.Go(func() error {
			return papi.Serve(ctx, s.cfg.API.Addr, papi.NewRouter(s.ctrl, s.store), logger.New("api"))
		})
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		g.Go(func() error { return metrics.StartPromServer(ctx, addr, logger.New("prometheus")) })
	}

	err := g.Wait()
	s.ctrl.Shutdown()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) loop(ctx context.Context) {
	defer monitoring.Recover()
	ticker := s.clock.Ticker(s.cfg.PA.Interval())
	defer ticker.Stop()
	s.log.Infof("admission loop started, interval %s", s.cfg.PA.Interval())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ctrl.Tick(ctx)
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	var err error
	if s.store != nil {
		err = s.store.Close()
	}
	if s.closer != nil {
		s.closer()
	}
	monitoring.Flush(2 * time.Second)
	return err
}
