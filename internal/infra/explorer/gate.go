package explorer

import (
	"context"
	"sync"
	"time"
)

// Gate is a single-slot rate limiter: every call waits until at least interval
// has passed since the previous call was let through.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewGate creates a gate. A zero interval never blocks.
func NewGate(interval time.Duration) *Gate {
	return &Gate{interval: interval}
}

// Wait blocks until the next call is allowed or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if delay := g.delay(); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	g.last = time.Now()
	return nil
}

func (g *Gate) delay() time.Duration {
	if g.interval <= 0 || g.last.IsZero() {
		return 0
	}
	elapsed := time.Since(g.last)
	if elapsed >= g.interval {
		return 0
	}
	return g.interval - elapsed
}
