package engine

import (
	"context"
	"log/slog"
	"time"
)

// Sweep runs one maintenance pass: expires old actions and unapproved queue
// items, prunes join history and clears raid mode once joins calm down.
func (e *Engine) Sweep() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	actions := e.actions.PruneOlderThan(now.Add(-e.cfg.Engine.ActionTTL))
	items := e.queue.PruneOlderThan(now.Add(-e.cfg.Engine.QueueTTL))
	cleared := e.raid.Sweep(now)

	if actions > 0 || items > 0 || cleared {
		slog.Debug("Maintenance sweep", "expired_actions", actions, "expired_queue_items", items, "raid_cleared", cleared)
	}
}

// Run sweeps on the configured interval until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.RLock()
	interval := e.cfg.Engine.SweepInterval
	e.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.Sweep()
		}
	}
}

// Start launches the sweeper in the background. It is a no-op if the
// sweeper is already running.
func (e *Engine) Start(ctx context.Context) {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel, e.done = cancel, done
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
}

// Close stops the sweeper started by Start and waits for it to exit.
func (e *Engine) Close() {
	e.lifeMu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.lifeMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
