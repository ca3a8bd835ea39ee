package testutil

import (
	"context"
	"sync"
	"time"
)

// ImmediateScheduler satisfies poll.Scheduler without real sleeping.
//
// Every Wait returns immediately (unless the context is already
// cancelled) and is counted, so tests can assert how many poll intervals
// elapsed without slowing the suite down.
//
// Thread-safety: safe for concurrent use via internal mutex, though the
// polling client calls Wait from a single flow.
type ImmediateScheduler struct {
	mu    sync.Mutex
	waits []time.Duration
}

// NewImmediateScheduler creates a scheduler with no recorded waits.
func NewImmediateScheduler() *ImmediateScheduler {
	return &ImmediateScheduler{}
}

// Wait records the requested delay and returns immediately.
func (s *ImmediateScheduler) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

// Waits returns a copy of the recorded delays in order.
func (s *ImmediateScheduler) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.waits))
	copy(out, s.waits)
	return out
}
