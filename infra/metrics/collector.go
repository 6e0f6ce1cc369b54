package metrics

import (
	"context"

	"github.com/kilianp07/pa/core/admission"
	"github.com/kilianp07/pa/core/events"
	coremetrics "github.com/kilianp07/pa/core/metrics"
	"github.com/kilianp07/pa/core/model"
	"github.com/kilianp07/pa/infra/logger"
	"github.com/kilianp07/pa/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records admission events
// on sink. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.Subscriber[events.Event], sink coremetrics.MetricsSink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record %s: %v", ev.EventName(), err)
				}
			}
		}
	}()
}

func record(sink coremetrics.MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.SnapshotEvent:
		s := e.Snapshot
		return sink.RecordSnapshot(coremetrics.SnapshotRecord{
			Budget:       s.Budget,
			Reserved:     s.Reserved,
			Avail:        s.Avail,
			Mode:         s.Mode.String(),
			Deficit:      s.Deficit,
			Reservations: len(s.Reservations),
			Time:         s.Time,
		})
	case events.DecisionEvent:
		r, ok := sink.(coremetrics.DecisionRecorder)
		if !ok {
			return nil
		}
		agent, _, _ := model.SplitID(e.ID)
		return r.RecordDecision(coremetrics.DecisionRecord{
			Op:       e.Op,
			ID:       e.ID,
			Agent:    agent,
			Amount:   e.Amount,
			Priority: e.Priority,
			Granted:  e.Granted(),
			Code:     admission.Code(e.Err),
			Time:     e.Time,
		})
	case events.RevocationEvent:
		r, ok := sink.(coremetrics.RevocationRecorder)
		if !ok {
			return nil
		}
		res := e.Revocation.Reservation
		rec := coremetrics.RevocationRecord{
			ID:        res.ID,
			Agent:     res.Agent(),
			Amount:    res.Amount,
			Priority:  res.Priority,
			Reason:    e.Revocation.Reason.String(),
			Immediate: e.Revocation.Immediate(),
			Delivered: e.Err == nil,
			Latency:   e.Latency,
			Time:      e.Time,
		}
		if e.Err != nil {
			rec.Error = e.Err.Error()
		}
		return r.RecordRevocation(rec)
	case events.ModeEvent:
		if r, ok := sink.(coremetrics.ModeRecorder); ok {
			return r.RecordMode(coremetrics.ModeRecord{From: e.From.String(), To: e.To.String(), Time: e.Time})
		}
	}
	return nil
}
