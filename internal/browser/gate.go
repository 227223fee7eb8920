package browser

import (
	"context"
	"sync"
)

// gate serializes access to the shared page. Waiters are served strictly in
// arrival order; nothing is ever dropped, so callers needing bounded latency
// cancel their own context.
type gate struct {
	mu      sync.Mutex
	busy    bool
	waiters []chan struct{}
}

// acquire blocks until the caller owns the gate or ctx is cancelled. A grant
// that races a cancellation is handed to the next waiter, never lost.
func (g *gate) acquire(ctx context.Context) error {
	g.mu.Lock()
	if !g.busy {
		g.busy = true
		g.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	g.waiters = append(g.waiters, ch)
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		for i, w := range g.waiters {
			if w == ch {
				g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
				g.mu.Unlock()
				return ctx.Err()
			}
		}
		// Not in the queue anymore: release already granted us ownership
		// concurrently with the cancellation. Pass it on.
		g.mu.Unlock()
		g.release()
		return ctx.Err()
	}
}

// release hands the gate to the head of the queue, or marks it idle.
func (g *gate) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.waiters) > 0 {
		ch := g.waiters[0]
		g.waiters = g.waiters[1:]
		close(ch)
		return
	}
	g.busy = false
}

// waiting returns the current queue depth.
func (g *gate) waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}
