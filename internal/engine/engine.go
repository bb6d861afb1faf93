package engine

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"stillpoint/internal/clock"
	"stillpoint/internal/config"
	"stillpoint/internal/kvstore"
	"stillpoint/internal/logging"
	"stillpoint/internal/presence"
	"stillpoint/internal/retryqueue"
	"stillpoint/internal/session"
	"stillpoint/internal/submit"
	"stillpoint/internal/timer"
)

// TimerTargetKey is the key-value entry holding the persisted countdown
// target. Only the target survives restarts; every timestamp-derived value is
// deliberately transient so a reload never resumes a stale countdown.
const TimerTargetKey = "timer-target-duration"

// ErrNotRunning is returned for operations that require a started engine.
var ErrNotRunning = errors.New("engine is not running")

// Engine is the single logical thread coordinating the timer, the session
// checkpoint store, the presence mapper, and the retry queue. Timer ticks,
// breath samples, and API calls all serialize through one mutex, so the only
// concurrency hazard left is temporal: delayed or missing ticks, which the
// timer's drift correction absorbs.
type Engine struct {
	cfg       *config.Config
	logger    *slog.Logger
	clk       clock.Clock
	store     *kvstore.Store
	timer     *timer.Timer
	sessions  *session.Store
	queue     *retryqueue.Queue
	submitter submit.Submitter
	registry  *presence.Registry

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	profile        presence.Profile
	multiplier     float64
	smoothed       float64
	lastPresence   presence.Output
	lastTick       timer.TickResult
	nextCheckpoint time.Time
}

// New constructs an engine with the production submission backend.
func New(cfg *config.Config, store *kvstore.Store, logger *slog.Logger) (*Engine, error) {
	return NewWithDeps(cfg, store, logger, submit.NewService(cfg, store, logger), clock.System())
}

// NewWithDeps constructs an engine with explicit collaborators (used in tests).
func NewWithDeps(cfg *config.Config, store *kvstore.Store, logger *slog.Logger, submitter submit.Submitter, clk clock.Clock) (*Engine, error) {
	if cfg == nil || store == nil || submitter == nil {
		return nil, errors.New("engine requires config, store, and submitter")
	}
	if clk == nil {
		clk = clock.System()
	}

	registry, err := presence.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}

	engineLogger := logging.WithComponent(logger, "engine")
	tm := timer.New(clk, logger, timer.Options{
		TickInterval:   time.Duration(cfg.Timer.TickIntervalSeconds) * time.Second,
		DriftTolerance: time.Duration(cfg.Timer.DriftToleranceSeconds) * time.Second,
		StallThreshold: time.Duration(cfg.Timer.StallThresholdSeconds) * time.Second,
	})
	sessions := session.NewStore(store, clk, logger, session.Options{
		FreshnessWindow: time.Duration(cfg.Session.FreshnessWindowSeconds) * time.Second,
		MinDuration:     time.Duration(cfg.Session.MinDurationSeconds) * time.Second,
	})
	queue := retryqueue.New(store, submitter, logger, cfg.Session.RetryQueueLimit)

	return &Engine{
		cfg:        cfg,
		logger:     engineLogger,
		clk:        clk,
		store:      store,
		timer:      tm,
		sessions:   sessions,
		queue:      queue,
		submitter:  submitter,
		registry:   registry,
		profile:    registry.Default(),
		multiplier: 1,
	}, nil
}

// Start recovers any interrupted session, flushes the retry queue, restores
// the persisted timer target, and begins the tick loop. Recovery runs before
// any new session can start, which resolves the only restart-boundary race.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine already running")
	}

	if err := e.restoreTarget(ctx); err != nil {
		e.logger.Warn("restore timer target failed", logging.Error(err))
	}

	if record, err := e.sessions.RecoverAbandoned(ctx); err != nil {
		e.logger.Warn("session recovery failed", logging.Error(err))
	} else if record != nil {
		e.dispatchLocked(record)
	}

	if _, err := e.queue.Flush(ctx); err != nil {
		e.logger.Warn("retry queue flush failed", logging.Error(err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.wg.Add(1)
	e.mu.Unlock()

	go e.run(runCtx)
	e.logger.Info("engine started")
	return nil
}

// Stop halts the tick loop. An in-progress session is checkpointed one last
// time and its record left in place, so the next start recovers it if the
// freshness window allows.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.wg.Wait()

	e.mu.Lock()
	if e.sessions.Active() {
		result := e.timer.Stop()
		ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := e.sessions.Checkpoint(ctx, result.ElapsedSeconds); err != nil {
			e.logger.Warn("final checkpoint failed", logging.Error(err))
		}
		ctxCancel()
	}
	e.mu.Unlock()
	e.logger.Info("engine stopped")
}

// Running reports whether the tick loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) restoreTarget(ctx context.Context) error {
	raw, ok, err := e.store.Get(ctx, TimerTargetKey)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return e.store.Remove(ctx, TimerTargetKey)
	}
	return e.timer.SetTarget(seconds)
}
