package audit

import (
	"context"

	"github.com/kilianp07/pa/core/admission"
	"github.com/kilianp07/pa/core/events"
	"github.com/kilianp07/pa/core/logger"
	"github.com/kilianp07/pa/core/model"
	"github.com/kilianp07/pa/internal/eventbus"
)

// StartRecorder appends decision, revocation and mode events from bus to
// store until ctx is canceled. Snapshots are not recorded.
func StartRecorder(ctx context.Context, bus eventbus.Subscriber[events.Event], store LogStore, log logger.Logger) {
	if bus == nil || store == nil {
		return
	}
	log = logger.OrNop(log)
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
				rec, ok := FromEvent(ev)
				if !ok {
					continue
				}
				if err := store.Append(ctx, rec); err != nil {
					log.Errorf("audit append %s: %v", rec.Kind, err)
				}
			}
		}
	}()
}

// FromEvent converts an admission event to a Record. It returns false for
// events that are not audited.
func FromEvent(ev events.Event) (Record, bool) {
	switch e := ev.(type) {
	case events.DecisionEvent:
		agent, _, _ := model.SplitID(e.ID)
		rec := Record{
			Timestamp: e.Time,
			Kind:      KindDecision,
			Op:        e.Op,
			ID:        e.ID,
			Agent:     agent,
			Amount:    e.Amount,
			Priority:  e.Priority,
			Code:      admission.Code(e.Err),
			Avail:     e.Avail,
			Reserved:  e.Reserved,
		}
		if e.Err != nil {
			rec.Error = e.Err.Error()
		}
		return rec, true
	case events.RevocationEvent:
		res := e.Revocation.Reservation
		rec := Record{
			Timestamp: e.Time,
			Kind:      KindRevocation,
			Op:        "revoke",
			ID:        res.ID,
			Agent:     res.Agent(),
			Amount:    res.Amount,
			Priority:  res.Priority,
			Code:      "ok",
			Reason:    e.Revocation.Reason.String(),
			Immediate: e.Revocation.Immediate(),
		}
		if e.Err != nil {
			rec.Code = "transport"
			rec.Error = e.Err.Error()
		}
		return rec, true
	case events.ModeEvent:
		return Record{Timestamp: e.Time, Kind: KindMode, Mode: e.To.String(), Reason: e.From.String() + "->" + e.To.String()}, true
	}
	return Record{}, false
}
