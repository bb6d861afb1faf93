package engine

import (
	"context"
	"time"

	"stillpoint/internal/logging"
)

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	interval := time.Duration(e.cfg.Timer.TickIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.step(ctx)
		}
	}
}

// step advances the timer by one nominal tick and checkpoints on the
// configured interval. The tick cadence is advisory only; the timer
// recomputes from timestamps regardless of how late this fires.
func (e *Engine) step(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.sessions.Active() {
		return
	}

	result := e.timer.Tick()
	e.lastTick = result

	if result.Completed {
		e.finishLocked(ctx, result)
		return
	}

	if !e.clk.Now().Before(e.nextCheckpoint) {
		if err := e.sessions.Checkpoint(ctx, result.ElapsedSeconds); err != nil {
			e.logger.Warn("checkpoint failed", logging.Error(err))
		}
		e.nextCheckpoint = e.clk.Now().Add(time.Duration(e.cfg.Session.CheckpointIntervalSeconds) * time.Second)
	}
}

// Validate forces a recomputation outside the tick cadence, for hosts that
// regain foreground after silently dropping ticks. A deadline that passed
// while suspended completes the session now.
func (e *Engine) Validate(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.sessions.Active() {
		return
	}

	result := e.timer.Validate()
	e.lastTick = result
	if result.Completed {
		e.finishLocked(ctx, result)
	}
}
