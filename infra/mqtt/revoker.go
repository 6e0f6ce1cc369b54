package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"

	"github.com/kilianp07/pa/core/model"
	coremqtt "github.com/kilianp07/pa/core/mqtt"
	"github.com/kilianp07/pa/infra/logger"
)

// Revoker sends revoke requests to the agent owning a reservation.
type Revoker struct {
	caller   coremqtt.Caller
	attempts uint
	timeout  time.Duration
	delay    time.Duration
	log      logger.Logger
}

// NewRevoker creates a Revoker. Each attempt is bounded by timeout and at
// most attempts calls are made.
func NewRevoker(caller coremqtt.Caller, attempts int, timeout time.Duration, log logger.Logger) *Revoker {
	if attempts < 1 {
		attempts = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Revoker{caller: caller, attempts: uint(attempts), timeout: timeout, delay: 100 * time.Millisecond, log: log}
}

// Revoke calls revoke(module, item, amount, immediate) on the owner agent.
// A failure reply from the agent is not retried.
func (r *Revoker) Revoke(ctx context.Context, rev model.Revocation) error {
	agent, module, item := model.SplitID(rev.Reservation.ID)
	if agent == "" {
		return fmt.Errorf("revoke %s: empty agent", rev.Reservation.ID)
	}
	req := coremqtt.Request{
		Func:      coremqtt.FuncRevoke,
		Module:    module,
		Item:      item,
		Amount:    rev.Reservation.Amount,
		Immediate: rev.Immediate(),
	}
	return retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			req.ID = ""
			rep, err := r.caller.Call(callCtx, agent, req)
			if err != nil {
				return err
			}
			return rep.Err()
		},
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, coremqtt.ErrRemote) }),
		retry.OnRetry(func(n uint, err error) {
			r.log.Warnf("revoke %s attempt %d failed: %v", rev.Reservation.ID, n+1, err)
		}),
	)
}
