package admission

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/pa/core/events"
	"github.com/kilianp07/pa/core/model"
	"github.com/kilianp07/pa/core/monitoring"
)

// maxConcurrentRevokes bounds the number of outbound revoke calls in flight.
const maxConcurrentRevokes = 8

// execute issues the outbound revoke calls. The reservations are already gone
// from the ledger, so failures are reported and never rolled back.
func (c *Controller) execute(ctx context.Context, revs []model.Revocation) {
	if len(revs) == 0 {
		return
	}
	if c.revoker == nil {
		for _, rev := range revs {
			c.log.Warnf("no revoker configured, dropping revoke of %s", rev.Reservation)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(maxConcurrentRevokes)
	for _, rev := range revs {
		g.Go(func() error {
			c.revoke(ctx, rev)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Controller) revoke(ctx context.Context, rev model.Revocation) {
	start := c.clock.Now()
	c.log.Infof("revoking %s: %s", rev.Reservation, rev.Reason)
	err := c.revoker.Revoke(ctx, rev)
	if err != nil {
		revokeFailures.WithLabelValues(rev.Reason.String()).Inc()
		c.log.Errorf("revoke %s failed: %v", rev.Reservation.ID, err)
		monitoring.CaptureException(err, map[string]string{
			"reservation": rev.Reservation.ID,
			"reason":      rev.Reason.String(),
		})
	}
	c.publish(events.RevocationEvent{
		Revocation: rev,
		Err:        err,
		Latency:    c.clock.Since(start),
		Time:       c.clock.Now(),
	})
}
