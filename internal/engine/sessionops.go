package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"stillpoint/internal/logging"
	"stillpoint/internal/presence"
	"stillpoint/internal/session"
	"stillpoint/internal/timer"
)

// StartSession begins a new meditation session under the named profile (or
// the default profile when empty) and starts the timer.
func (e *Engine) StartSession(ctx context.Context, profileName string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return "", ErrNotRunning
	}

	profile := e.registry.Default()
	if profileName != "" {
		found, ok := e.registry.Lookup(profileName)
		if !ok {
			return "", fmt.Errorf("unknown profile %q", profileName)
		}
		profile = found
	}

	sessionID, err := e.sessions.StartSession(ctx, profile.Name)
	if err != nil {
		return "", err
	}

	e.profile = profile
	e.smoothed = 0
	e.lastPresence = presence.Output{}
	e.timer.Reset()
	e.timer.Start()
	e.lastTick = timer.TickResult{Running: true}
	if target, ok := e.timer.Target(); ok {
		e.lastTick.HasTarget = true
		e.lastTick.RemainingSeconds = target
	}
	e.nextCheckpoint = e.clk.Now().Add(time.Duration(e.cfg.Session.CheckpointIntervalSeconds) * time.Second)
	return sessionID, nil
}

// StopSession ends the active session early. The elapsed value freezes at
// its last computed point and the record is handed to the submission path.
func (e *Engine) StopSession(ctx context.Context) (timer.TickResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.sessions.Active() {
		return e.lastTick, session.ErrNoActiveSession
	}

	result := e.timer.Stop()
	e.lastTick = result
	e.finishLocked(ctx, result)
	return result, nil
}

// SwitchProfile changes the visual profile mid-session, keeping the
// per-profile duration breakdown accurate.
func (e *Engine) SwitchProfile(ctx context.Context, profileName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile, ok := e.registry.Lookup(profileName)
	if !ok {
		return fmt.Errorf("unknown profile %q", profileName)
	}

	if e.sessions.Active() {
		if err := e.sessions.SwitchProfile(ctx, profile.Name, e.lastTick.ElapsedSeconds); err != nil {
			return err
		}
	}
	e.profile = profile
	e.smoothed = 0
	return nil
}

// SetTarget sets and persists the countdown target. Only permitted while no
// session is running.
func (e *Engine) SetTarget(ctx context.Context, seconds int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.timer.SetTarget(seconds); err != nil {
		return err
	}
	if err := e.store.Set(ctx, TimerTargetKey, strconv.Itoa(seconds)); err != nil {
		return fmt.Errorf("persist timer target: %w", err)
	}
	return nil
}

// ClearTarget switches to count-up mode and drops the persisted target.
func (e *Engine) ClearTarget(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.timer.ClearTarget(); err != nil {
		return err
	}
	if err := e.store.Remove(ctx, TimerTargetKey); err != nil {
		return fmt.Errorf("clear timer target: %w", err)
	}
	return nil
}

// SetMultiplier updates the user's size preference. The value is clamped to
// the active profile's range at mapping time.
func (e *Engine) SetMultiplier(multiplier float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.multiplier = multiplier
}

// IngestBreath maps one breath sample to presence parameters. Samples arrive
// on their own cadence, independent of timer ticks.
func (e *Engine) IngestBreath(sample presence.BreathSample) presence.Output {
	e.mu.Lock()
	defer e.mu.Unlock()

	output := presence.Map(e.profile, sample.Amplitude, e.smoothed, e.multiplier, e.registry.Ceiling())
	e.smoothed = output.Smoothed
	e.lastPresence = output
	return output
}

// finishLocked completes the active session and hands the record to the
// submission path. Callers hold e.mu.
func (e *Engine) finishLocked(ctx context.Context, result timer.TickResult) {
	if err := e.sessions.Checkpoint(ctx, result.ElapsedSeconds); err != nil {
		e.logger.Warn("final checkpoint failed", logging.Error(err))
	}
	record, err := e.sessions.CompleteSession(ctx)
	if err != nil {
		e.logger.Warn("complete session failed", logging.Error(err))
		return
	}
	if record != nil {
		e.dispatchLocked(record)
	}
}

// dispatchLocked submits a record without blocking the tick loop. Submission
// is fire-and-forget: a failure lands the record in the retry queue, and the
// local state remains the source of truth until a flush succeeds.
func (e *Engine) dispatchLocked(record *session.Record) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(e.cfg.Submission.RequestTimeout)*time.Second+5*time.Second)
		defer cancel()

		if err := e.submitter.Submit(ctx, record); err != nil {
			e.logger.Warn("submission failed, queueing for retry",
				logging.String(logging.FieldSessionID, record.SessionID),
				logging.Error(err),
			)
			if err := e.queue.Enqueue(ctx, record); err != nil {
				e.logger.Error("enqueue for retry failed, session record lost",
					logging.String(logging.FieldSessionID, record.SessionID),
					logging.Error(err),
				)
			}
		}
	}()
}

// FlushRetries replays queued submissions immediately.
func (e *Engine) FlushRetries(ctx context.Context) (succeeded, stillFailed int, err error) {
	result, err := e.queue.Flush(ctx)
	if err != nil {
		return 0, 0, err
	}
	return len(result.Succeeded), len(result.StillFailed), nil
}
