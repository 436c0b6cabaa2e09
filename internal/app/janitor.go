package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abhiarc/Dream-interpreter/internal/domain"
)

// Sweep forgets sessions that have not been touched for maxIdle and are not
// waiting on the model. It returns the number of sessions removed.
func (c *Controller) Sweep(ctx context.Context, maxIdle time.Duration) int {
	now := c.clock.Now()
	var expired []uuid.UUID

	c.mu.Lock()
	for id, ls := range c.sessions {
		ls.mu.Lock()
		idle := now.Sub(ls.lastSeen) > maxIdle && ls.state.Phase() != domain.PhaseGenerating
		if idle {
			ls.evicted = true
		}
		ls.mu.Unlock()
		if idle {
			delete(c.sessions, id)
			expired = append(expired, id)
		}
	}
	c.mu.Unlock()

	for _, id := range expired {
		if err := c.counters.Delete(ctx, id); err != nil {
			c.logger.WarnContext(ctx, "failed to delete selection counters", "session_id", id, "error", err)
		}
	}
	return len(expired)
}

// Sessions returns the number of live sessions.
func (c *Controller) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// StartJanitor periodically sweeps idle sessions.
// Returns a stop function that should be called to clean up the goroutine.
func (c *Controller) StartJanitor(interval, maxIdle time.Duration) func() {
	ticker := c.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if n := c.Sweep(c.baseCtx, maxIdle); n > 0 {
					c.logger.Debug("evicted idle sessions", "count", n, "remaining", c.Sessions())
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
