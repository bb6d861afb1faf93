package timer

import (
	"errors"
	"log/slog"
	"time"

	"stillpoint/internal/clock"
	"stillpoint/internal/logging"
)

// ErrRunning is returned when a target change is attempted mid-run.
var ErrRunning = errors.New("timer is running")

// Options carries the tunable thresholds for drift handling.
type Options struct {
	// TickInterval is the nominal cadence Tick is expected to be called at.
	TickInterval time.Duration
	// DriftTolerance is how far the recomputed elapsed value may diverge from
	// the naive tick count before a correction is logged.
	DriftTolerance time.Duration
	// StallThreshold is how long Validate waits without a tick before treating
	// the tick source as stalled.
	StallThreshold time.Duration
}

func (o *Options) applyDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.DriftTolerance <= 0 {
		o.DriftTolerance = 2 * time.Second
	}
	if o.StallThreshold <= 0 {
		o.StallThreshold = 5 * time.Second
	}
}

// TickResult is the explicit outcome of a Tick, Validate, or Stop call.
type TickResult struct {
	Running          bool
	ElapsedSeconds   int
	RemainingSeconds int
	HasTarget        bool
	// Completed is true only on the call that transitioned the timer to its
	// finished state; repeated ticks after completion never set it again.
	Completed bool
	// Corrected reports that the recomputed elapsed value diverged from the
	// naive tick count beyond the drift tolerance.
	Corrected         bool
	CorrectionSeconds int
}

// Timer is a countdown or count-up timer whose authoritative value is always
// recomputed from absolute timestamps rather than tick counts, so delayed,
// batched, or dropped ticks cannot skew the measurement.
//
// Timer is not safe for concurrent use; callers serialize access.
type Timer struct {
	clk    clock.Clock
	logger *slog.Logger
	opts   Options

	targetSeconds int
	hasTarget     bool

	running     bool
	startedAt   time.Time
	expectedEnd time.Time
	// carried accumulates elapsed time from previous run segments across
	// stop/start cycles.
	carried time.Duration

	lastTickAt      time.Time
	lastElapsed     int
	lastRemaining   int
	completionFired bool
}

// New constructs a timer in the stopped, count-up state.
func New(clk clock.Clock, logger *slog.Logger, opts Options) *Timer {
	if clk == nil {
		clk = clock.System()
	}
	opts.applyDefaults()
	return &Timer{
		clk:    clk,
		logger: logging.WithComponent(logger, "timer"),
		opts:   opts,
	}
}

// SetTarget sets a countdown target and resets the measurement. Only
// permitted while stopped.
func (t *Timer) SetTarget(seconds int) error {
	if t.running {
		return ErrRunning
	}
	if seconds <= 0 {
		return errors.New("target must be positive")
	}
	t.targetSeconds = seconds
	t.hasTarget = true
	t.resetMeasurement()
	return nil
}

// ClearTarget switches the timer to count-up mode and resets the measurement.
// Only permitted while stopped.
func (t *Timer) ClearTarget() error {
	if t.running {
		return ErrRunning
	}
	t.targetSeconds = 0
	t.hasTarget = false
	t.resetMeasurement()
	return nil
}

// Target returns the countdown target, if one is set.
func (t *Timer) Target() (int, bool) {
	return t.targetSeconds, t.hasTarget
}

// Running reports whether the timer is currently running.
func (t *Timer) Running() bool {
	return t.running
}

// Start begins a run segment. Repeated calls while running are no-ops, as is
// starting a completed timer before Reset.
func (t *Timer) Start() {
	if t.running || t.completionFired {
		return
	}
	now := t.clk.Now()
	t.startedAt = now
	t.lastTickAt = now
	if t.hasTarget {
		t.expectedEnd = now.Add(time.Duration(t.targetSeconds)*time.Second - t.carried)
	}
	t.running = true
}

// Stop halts the current run segment, freezing elapsed and remaining at their
// last computed values. Stopping a stopped timer is a no-op.
func (t *Timer) Stop() TickResult {
	if !t.running {
		return t.frozen()
	}
	now := t.clk.Now()
	t.carried += now.Sub(t.startedAt)
	t.startedAt = now
	t.recompute(now, false)
	t.running = false
	return t.frozen()
}

// Reset returns the timer to its initial stopped state, keeping the target.
func (t *Timer) Reset() {
	t.running = false
	t.resetMeasurement()
}

// Tick recomputes the authoritative elapsed and remaining values from the
// current timestamp. It must not trust the cadence it is invoked at: the
// naive tick count is used only to detect drift, never as the source of truth.
func (t *Timer) Tick() TickResult {
	if !t.running {
		return t.frozen()
	}

	now := t.clk.Now()
	naive := t.lastElapsed + int(t.opts.TickInterval/time.Second)
	result := t.recompute(now, true)

	if drift := result.ElapsedSeconds - naive; abs(drift) > int(t.opts.DriftTolerance/time.Second) && !result.Completed {
		result.Corrected = true
		result.CorrectionSeconds = drift
		t.logger.Info("tick drift corrected",
			logging.String(logging.FieldEventType, "drift_correction"),
			logging.Int("drift_seconds", drift),
			logging.Int("elapsed_seconds", result.ElapsedSeconds),
		)
	}

	t.lastTickAt = now
	return result
}

// Validate is a defensive self-check callable outside the tick cadence, such
// as when the host regains visibility. If the timer believes it is running
// but no tick has arrived within the stall threshold, it recomputes from
// absolute timestamps and forces completion when the deadline has passed.
func (t *Timer) Validate() TickResult {
	if !t.running {
		return t.frozen()
	}

	now := t.clk.Now()
	gap := now.Sub(t.lastTickAt)
	if gap <= t.opts.StallThreshold {
		return t.frozen()
	}

	t.logger.Warn("tick source stalled, recomputing from timestamps",
		logging.String(logging.FieldEventType, "tick_stall"),
		logging.Duration("gap", gap),
	)

	result := t.recompute(now, true)
	result.Corrected = true
	result.CorrectionSeconds = int(gap / time.Second)
	t.lastTickAt = now
	return result
}

// recompute derives elapsed and remaining from absolute timestamps and
// handles the completion transition. allowCompletion is false during Stop so
// a manual stop right at the deadline still reads as a stop.
func (t *Timer) recompute(now time.Time, allowCompletion bool) TickResult {
	elapsed := int((now.Sub(t.startedAt) + t.carried) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	result := TickResult{
		Running:        t.running,
		ElapsedSeconds: elapsed,
		HasTarget:      t.hasTarget,
	}

	if t.hasTarget {
		result.RemainingSeconds = ceilSeconds(t.expectedEnd.Sub(now))
		if result.RemainingSeconds < 0 {
			result.RemainingSeconds = 0
		}
		if allowCompletion && !now.Before(t.expectedEnd) {
			result.RemainingSeconds = 0
			if result.ElapsedSeconds > t.targetSeconds {
				result.ElapsedSeconds = t.targetSeconds
			}
			result.Running = false
			result.Completed = !t.completionFired
			if result.Completed {
				t.logger.Info("countdown completed",
					logging.String(logging.FieldEventType, "completion"),
					logging.Int("target_seconds", t.targetSeconds),
				)
			}
			t.completionFired = true
			t.running = false
		}
	}

	t.lastElapsed = result.ElapsedSeconds
	t.lastRemaining = result.RemainingSeconds
	return result
}

func (t *Timer) frozen() TickResult {
	return TickResult{
		Running:          t.running,
		ElapsedSeconds:   t.lastElapsed,
		RemainingSeconds: t.lastRemaining,
		HasTarget:        t.hasTarget,
	}
}

func (t *Timer) resetMeasurement() {
	t.carried = 0
	t.startedAt = time.Time{}
	t.expectedEnd = time.Time{}
	t.lastTickAt = time.Time{}
	t.lastElapsed = 0
	t.completionFired = false
	if t.hasTarget {
		t.lastRemaining = t.targetSeconds
	} else {
		t.lastRemaining = 0
	}
}

// ceilSeconds rounds a duration up to whole seconds so the display never
// shows zero before the deadline has actually passed.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return int(d / time.Second)
	}
	return int((d + time.Second - 1) / time.Second)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
