package export

// limiter.go bounds how many exports run at once.
//
// Exports into one output directory overwrite each other's files, so the
// review server runs them through a Limiter. When every slot is taken a new
// request waits up to maxWait, then fails with ErrBusy.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrBusy is returned when no export slot frees up within the wait time.
var ErrBusy = errors.New("export already running")

// DefaultMaxWait is how long Acquire waits for a slot when none is given.
const DefaultMaxWait = 30 * time.Second

// Limiter is a counting semaphore for export runs.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int32
}

// NewLimiter allows at most maxConcurrent exports; values below 1 mean 1.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must Release it.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrBusy
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of exports currently holding a slot.
func (l *Limiter) Active() int {
	return int(l.active.Load())
}
