package poll

import (
	"context"
	"time"
)

// Scheduler waits out the interval between status checks. Injectable so
// tests run the full state machine without real sleeping.
type Scheduler interface {
	// Wait blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Wait(ctx context.Context, d time.Duration) error
}

// timerScheduler is the production scheduler backed by a real timer.
type timerScheduler struct{}

func (timerScheduler) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
