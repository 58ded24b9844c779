package provider

import (
	"context"
	"time"
)

const (
	// backoffFloor is the first retry delay.
	backoffFloor = 1 * time.Second
	// backoffCeil caps every computed delay, header hints included.
	backoffCeil = 60 * time.Second
)

// Sleeper abstracts the backoff sleep so retry behavior is testable without
// real delays. Sleep returns early with the context error on cancellation.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// timerSleeper is the production Sleeper.
type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoffDelay computes the sleep before retry number retry (1-based).
// An explicit wait hint from the previous classified error takes precedence
// over the exponential schedule; either way the ceiling holds.
func backoffDelay(retry int, prev *Error) time.Duration {
	if prev != nil && prev.WaitHint > 0 {
		return min(prev.WaitHint, backoffCeil)
	}
	d := backoffFloor
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= backoffCeil {
			return backoffCeil
		}
	}
	return min(d, backoffCeil)
}
