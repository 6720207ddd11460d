package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum spacing between consecutive calls to an upstream
// service. Implementations must be safe for concurrent use.
type Pacer interface {
	// Pace blocks until the next call is allowed, or returns the context
	// error if the wait is cancelled.
	Pace(ctx context.Context) error
}

// IntervalPacer spaces calls at least interval apart. The first call passes
// immediately.
type IntervalPacer struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time

	// sleep is replaceable in tests so paced loops run without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewIntervalPacer constructs an IntervalPacer.
func NewIntervalPacer(interval time.Duration) *IntervalPacer {
	return &IntervalPacer{
		interval: interval,
		sleep:    sleepContext,
	}
}

// Pace blocks until at least the configured interval has passed since the
// previous successful Pace call.
func (p *IntervalPacer) Pace(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	now := time.Now()
	wait := time.Duration(0)
	if !p.last.IsZero() {
		if elapsed := now.Sub(p.last); elapsed < p.interval {
			wait = p.interval - elapsed
		}
	}
	p.last = now.Add(wait)
	p.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, wait)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Nop is a Pacer that never waits, for tests and unpaced wiring.
type Nop struct{}

func (Nop) Pace(ctx context.Context) error { return ctx.Err() }

var (
	_ Pacer = (*IntervalPacer)(nil)
	_ Pacer = Nop{}
)
