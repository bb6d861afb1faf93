package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stillpoint/internal/clock"
	"stillpoint/internal/kvstore"
	"stillpoint/internal/logging"
)

// ActiveSessionKey is the key-value entry holding the in-progress session.
const ActiveSessionKey = "active-session-record"

// ErrSessionActive is returned when a session is started while another is in progress.
var ErrSessionActive = errors.New("a session is already active")

// ErrNoActiveSession is returned by checkpoint and completion calls without a session.
var ErrNoActiveSession = errors.New("no active session")

// Options carries the recovery and submission policy knobs.
type Options struct {
	// FreshnessWindow is the maximum age of a checkpoint that is still
	// trusted for automatic recovery after an abrupt exit.
	FreshnessWindow time.Duration
	// MinDuration is the shortest session worth submitting; shorter ones are
	// discarded as accidental activations.
	MinDuration time.Duration
}

func (o *Options) applyDefaults() {
	if o.FreshnessWindow <= 0 {
		o.FreshnessWindow = 120 * time.Second
	}
	if o.MinDuration < 0 {
		o.MinDuration = 0
	}
}

// Store checkpoints the in-progress session so an abrupt process exit never
// loses a completed practice. It owns the single active-session record.
type Store struct {
	kv     kvstore.KV
	clk    clock.Clock
	logger *slog.Logger
	opts   Options

	active *activeRecord
}

// NewStore constructs a checkpoint store over the given key-value backend.
func NewStore(kv kvstore.KV, clk clock.Clock, logger *slog.Logger, opts Options) *Store {
	if clk == nil {
		clk = clock.System()
	}
	opts.applyDefaults()
	return &Store{
		kv:     kv,
		clk:    clk,
		logger: logging.WithComponent(logger, "session"),
		opts:   opts,
	}
}

// StartSession begins a session and durably writes its initial record
// immediately, so even a near-instant crash leaves a recoverable trace.
func (s *Store) StartSession(ctx context.Context, profileType string) (string, error) {
	if s.active != nil {
		return "", ErrSessionActive
	}
	now := s.clk.Now()
	record := &activeRecord{
		SessionID:      uuid.NewString(),
		CurrentProfile: profileType,
		ProfileOrder:   []string{profileType},
		Breakdown:      map[string]int{profileType: 0},
		StartedAtMs:    now.UnixMilli(),
		UpdatedAtMs:    now.UnixMilli(),
	}
	if err := s.persist(ctx, record); err != nil {
		return "", fmt.Errorf("write initial session record: %w", err)
	}
	s.active = record
	s.logger.Info("session started",
		logging.String(logging.FieldSessionID, record.SessionID),
		logging.String(logging.FieldProfile, profileType),
	)
	return record.SessionID, nil
}

// SwitchProfile attributes elapsed time to the profile active so far and
// continues the session under a new profile.
func (s *Store) SwitchProfile(ctx context.Context, profileType string, elapsedSeconds int) error {
	if s.active == nil {
		return ErrNoActiveSession
	}
	s.attribute(elapsedSeconds)
	if _, seen := s.active.Breakdown[profileType]; !seen {
		s.active.ProfileOrder = append(s.active.ProfileOrder, profileType)
		s.active.Breakdown[profileType] = 0
	}
	s.active.CurrentProfile = profileType
	return s.checkpoint(ctx, elapsedSeconds)
}

// Checkpoint overwrites the persisted record with the latest duration and a
// fresh update timestamp. It never appends; the store holds at most one
// active-session record.
func (s *Store) Checkpoint(ctx context.Context, elapsedSeconds int) error {
	if s.active == nil {
		return ErrNoActiveSession
	}
	s.attribute(elapsedSeconds)
	return s.checkpoint(ctx, elapsedSeconds)
}

func (s *Store) checkpoint(ctx context.Context, elapsedSeconds int) error {
	s.active.DurationSeconds = elapsedSeconds
	s.active.UpdatedAtMs = s.clk.Now().UnixMilli()
	if err := s.persist(ctx, s.active); err != nil {
		return fmt.Errorf("checkpoint session: %w", err)
	}
	return nil
}

// attribute credits seconds elapsed since the last attribution to the
// currently active profile.
func (s *Store) attribute(elapsedSeconds int) {
	delta := elapsedSeconds - s.active.AccountedSeconds
	if delta < 0 {
		delta = 0
	}
	s.active.Breakdown[s.active.CurrentProfile] += delta
	s.active.AccountedSeconds = elapsedSeconds
}

// CompleteSession finalizes the active session using its last checkpointed
// duration and clears the persisted record. Sessions shorter than the
// minimum duration are discarded and a nil record is returned.
func (s *Store) CompleteSession(ctx context.Context) (*Record, error) {
	if s.active == nil {
		return nil, ErrNoActiveSession
	}
	active := s.active
	s.active = nil

	if err := s.kv.Remove(ctx, ActiveSessionKey); err != nil {
		return nil, fmt.Errorf("clear active session: %w", err)
	}

	return s.finalize(active, s.clk.Now().UnixMilli())
}

// RecoverAbandoned inspects the persisted active-session record left by a
// previous process. A record whose last checkpoint is within the freshness
// window is finalized with its checkpointed duration; anything older is too
// stale to trust and is discarded without submission.
//
// Call this once at process start, before any new session begins.
func (s *Store) RecoverAbandoned(ctx context.Context) (*Record, error) {
	raw, ok, err := s.kv.Get(ctx, ActiveSessionKey)
	if err != nil {
		return nil, fmt.Errorf("read active session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	if err := s.kv.Remove(ctx, ActiveSessionKey); err != nil {
		return nil, fmt.Errorf("clear active session: %w", err)
	}

	var record activeRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		s.logger.Warn("discarding unreadable session record",
			logging.String(logging.FieldEventType, "discard"),
			logging.Error(err),
		)
		return nil, nil
	}

	age := s.clk.Now().Sub(time.UnixMilli(record.UpdatedAtMs))
	if age > s.opts.FreshnessWindow {
		s.logger.Info("discarding stale session record",
			logging.String(logging.FieldEventType, "discard"),
			logging.String(logging.FieldSessionID, record.SessionID),
			logging.Duration("age", age),
		)
		return nil, nil
	}

	s.logger.Info("recovering interrupted session",
		logging.String(logging.FieldEventType, "recovery"),
		logging.String(logging.FieldSessionID, record.SessionID),
		logging.Int("duration_seconds", record.DurationSeconds),
	)
	// Completion time is the last checkpoint, not now; anything later would
	// fabricate practice time that never happened.
	return s.finalize(&record, record.UpdatedAtMs)
}

// finalize turns an active record into a submittable Record, applying the
// minimum-duration policy.
func (s *Store) finalize(active *activeRecord, completedAtMs int64) (*Record, error) {
	if time.Duration(active.DurationSeconds)*time.Second < s.opts.MinDuration {
		s.logger.Info("discarding session below minimum duration",
			logging.String(logging.FieldEventType, "discard"),
			logging.String(logging.FieldSessionID, active.SessionID),
			logging.Int("duration_seconds", active.DurationSeconds),
		)
		return nil, nil
	}

	// Credit any seconds not yet attributed to the current profile.
	if remainder := active.DurationSeconds - active.AccountedSeconds; remainder > 0 {
		active.Breakdown[active.CurrentProfile] += remainder
		active.AccountedSeconds = active.DurationSeconds
	}

	record := &Record{
		SessionID:       active.SessionID,
		ProfileType:     headlineProfile(active.ProfileOrder, active.Breakdown),
		DurationSeconds: active.DurationSeconds,
		StartedAtMs:     active.StartedAtMs,
		CompletedAtMs:   completedAtMs,
		Breakdown:       active.Breakdown,
	}
	s.logger.Info("session finalized",
		logging.String(logging.FieldSessionID, record.SessionID),
		logging.String(logging.FieldProfile, record.ProfileType),
		logging.Int("duration_seconds", record.DurationSeconds),
	)
	return record, nil
}

// Active reports whether a session is currently in progress.
func (s *Store) Active() bool {
	return s.active != nil
}

// ActiveSessionID returns the in-progress session id, if any.
func (s *Store) ActiveSessionID() (string, bool) {
	if s.active == nil {
		return "", false
	}
	return s.active.SessionID, true
}

func (s *Store) persist(ctx context.Context, record *activeRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}
	return s.kv.Set(ctx, ActiveSessionKey, string(payload))
}
