package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/pa/core/metrics"
	"github.com/kilianp07/pa/infra/logger"
)

// InfluxSink writes admission records to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSnapshot writes the tick state.
func (s *InfluxSink) RecordSnapshot(rec coremetrics.SnapshotRecord) error {
	p := write.NewPointWithMeasurement("pa_state").
		AddTag("mode", rec.Mode).
		AddField("budget", round3(rec.Budget)).
		AddField("reserved", round3(rec.Reserved)).
		AddField("avail", round3(rec.Avail)).
		AddField("deficit", rec.Deficit).
		AddField("reservations", rec.Reservations).
		SetTime(rec.Time)
	return s.write(p)
}

// RecordDecision writes an admission call.
func (s *InfluxSink) RecordDecision(rec coremetrics.DecisionRecord) error {
	p := write.NewPointWithMeasurement("pa_decision").
		AddTag("op", rec.Op).
		AddTag("code", rec.Code)
	if rec.Agent != "" {
		p = p.AddTag("agent", rec.Agent)
	}
	p = p.AddField("id", rec.ID).
		AddField("amount", round3(rec.Amount)).
		AddField("priority", rec.Priority).
		AddField("granted", rec.Granted).
		SetTime(rec.Time)
	return s.write(p)
}

// RecordRevocation writes an outbound revoke.
func (s *InfluxSink) RecordRevocation(rec coremetrics.RevocationRecord) error {
	p := write.NewPointWithMeasurement("pa_revocation").
		AddTag("agent", rec.Agent).
		AddTag("reason", rec.Reason).
		AddField("id", rec.ID).
		AddField("amount", round3(rec.Amount)).
		AddField("priority", rec.Priority).
		AddField("immediate", rec.Immediate).
		AddField("delivered", rec.Delivered).
		AddField("latency_ms", round3(rec.Latency.Seconds()*1000)).
		AddField("errors", rec.Error).
		SetTime(rec.Time)
	return s.write(p)
}

// RecordMode writes a schedule switch.
func (s *InfluxSink) RecordMode(rec coremetrics.ModeRecord) error {
	p := write.NewPointWithMeasurement("pa_mode").
		AddTag("from", rec.From).
		AddTag("to", rec.To).
		AddField("switch", 1).
		SetTime(rec.Time)
	return s.write(p)
}

// Close flushes and closes the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
