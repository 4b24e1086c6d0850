// Package asynctask drives "create a job, then poll until terminal" vendor
// workflows under a caller-supplied wall-clock ceiling.
package asynctask

import (
	"context"
	"errors"
	"time"

	"github.com/glowlab/dermascan/internal/core/domain"
	"github.com/glowlab/dermascan/internal/infrastructure/resilience"
)

type CheckOutcome int

const (
	// OutcomePending means the vendor has not reached a terminal status yet.
	OutcomePending CheckOutcome = iota
	// OutcomeDone means the vendor reported terminal success.
	OutcomeDone
)

// CheckFunc issues one status query. A returned error terminates the poll loop
// unless it is classified temporary (domain.ErrTemporary or an expired per-call
// deadline), in which case the failure is consumed and charged against the
// ceiling like any other attempt.
type CheckFunc func(ctx context.Context) (CheckOutcome, error)

type Poller struct {
	backoff        resilience.BackoffPolicy
	perCallTimeout time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPoller(backoff resilience.BackoffPolicy, perCallTimeout time.Duration) *Poller {
	if perCallTimeout <= 0 {
		perCallTimeout = 5 * time.Second
	}
	return &Poller{
		backoff:        backoff,
		perCallTimeout: perCallTimeout,
		now:            time.Now,
		sleep:          sleepWithContext,
	}
}

// Poll runs check until terminal success, terminal failure, or ceiling
// exhaustion. It returns the number of status checks issued. The loop never
// starts an attempt it cannot finish: when elapsed time plus the next delay
// plus one per-call timeout would overrun the ceiling, it fails with
// domain.ErrBudgetExceeded instead of sleeping.
func (p *Poller) Poll(ctx context.Context, ceiling time.Duration, check CheckFunc) (int, error) {
	start := p.now()
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		callCtx, cancel := context.WithTimeout(ctx, p.perCallTimeout)
		outcome, err := check(callCtx)
		cancel()
		attempts++

		if err == nil && outcome == OutcomeDone {
			return attempts, nil
		}
		if err != nil && !isTransient(ctx, err) {
			return attempts, err
		}

		delay := p.backoff.NextDelay(attempts - 1)
		elapsed := p.now().Sub(start)
		if elapsed+delay+p.perCallTimeout > ceiling {
			return attempts, domain.WrapError(domain.ErrBudgetExceeded, "poll task",
				errors.New("ceiling reached before next attempt could complete"))
		}

		if err := p.sleep(ctx, delay); err != nil {
			return attempts, err
		}
	}
}

func isTransient(parent context.Context, err error) bool {
	if parent.Err() != nil {
		// The overall context is gone; nothing is transient anymore.
		return false
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return true
	}
	// A per-call deadline expiry cancels the in-flight call and counts as one
	// consumed attempt.
	return errors.Is(err, context.DeadlineExceeded)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
