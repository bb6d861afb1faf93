package session_test

import (
	"context"
	"testing"
	"time"

	"stillpoint/internal/clock"
	"stillpoint/internal/logging"
	"stillpoint/internal/session"
)

type fakeKV struct {
	values map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := f.values[key]
	return value, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

func (f *fakeKV) Remove(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func newStore(kv *fakeKV, clk clock.Clock, opts session.Options) *session.Store {
	return session.NewStore(kv, clk, logging.NewNop(), opts)
}

func TestStartSessionWritesRecordImmediately(t *testing.T) {
	kv := newFakeKV()
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	store := newStore(kv, clk, session.Options{MinDuration: 60 * time.Second})

	id, err := store.StartSession(context.Background(), "sphere")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if id == "" {
		t.Fatal("expected a session id")
	}
	if _, ok := kv.values[session.ActiveSessionKey]; !ok {
		t.Fatal("initial record should be persisted before any checkpoint")
	}

	if _, err := store.StartSession(context.Background(), "lotus"); err != session.ErrSessionActive {
		t.Fatalf("second StartSession = %v, want ErrSessionActive", err)
	}
}

func TestCompleteSessionClearsRecord(t *testing.T) {
	kv := newFakeKV()
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	store := newStore(kv, clk, session.Options{MinDuration: 60 * time.Second})

	if _, err := store.StartSession(context.Background(), "sphere"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	clk.Advance(10 * time.Minute)
	if err := store.Checkpoint(context.Background(), 600); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	record, err := store.CompleteSession(context.Background())
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if record == nil {
		t.Fatal("expected a finalized record")
	}
	if record.DurationSeconds != 600 {
		t.Fatalf("duration = %d, want 600", record.DurationSeconds)
	}
	if record.ProfileType != "sphere" {
		t.Fatalf("profile = %q, want sphere", record.ProfileType)
	}
	if _, ok := kv.values[session.ActiveSessionKey]; ok {
		t.Fatal("completion must clear the persisted record")
	}
	if store.Active() {
		t.Fatal("store should be idle after completion")
	}
}

func TestCompleteSessionBelowMinimumDiscards(t *testing.T) {
	kv := newFakeKV()
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	store := newStore(kv, clk, session.Options{MinDuration: 60 * time.Second})

	if _, err := store.StartSession(context.Background(), "sphere"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := store.Checkpoint(context.Background(), 30); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	record, err := store.CompleteSession(context.Background())
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if record != nil {
		t.Fatalf("30s session should be discarded, got %+v", record)
	}
	if _, ok := kv.values[session.ActiveSessionKey]; ok {
		t.Fatal("discarded session must still clear the record")
	}
}

func TestRecoverFreshCheckpoint(t *testing.T) {
	kv := newFakeKV()
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	opts := session.Options{FreshnessWindow: 120 * time.Second, MinDuration: 60 * time.Second}

	first := newStore(kv, clk, opts)
	id, err := first.StartSession(context.Background(), "lotus")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	clk.Advance(20 * time.Minute)
	if err := first.Checkpoint(context.Background(), 1200); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	checkpointedAt := clk.Now().UnixMilli()

	// The process crashes; a new store recovers on restart 90 seconds later.
	clk.Advance(90 * time.Second)
	second := newStore(kv, clk, opts)
	record, err := second.RecoverAbandoned(context.Background())
	if err != nil {
		t.Fatalf("RecoverAbandoned: %v", err)
	}
	if record == nil {
		t.Fatal("fresh checkpoint should be recovered")
	}
	if record.SessionID != id {
		t.Fatalf("recovered id = %q, want %q", record.SessionID, id)
	}
	if record.DurationSeconds != 1200 {
		t.Fatalf("recovered duration = %d, want checkpointed 1200", record.DurationSeconds)
	}
	if record.CompletedAtMs != checkpointedAt {
		t.Fatalf("completed at = %d, want last checkpoint time %d", record.CompletedAtMs, checkpointedAt)
	}
	if _, ok := kv.values[session.ActiveSessionKey]; ok {
		t.Fatal("recovery must clear the persisted record")
	}
}

func TestRecoverStaleCheckpointDiscards(t *testing.T) {
	kv := newFakeKV()
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	opts := session.Options{FreshnessWindow: 120 * time.Second, MinDuration: 60 * time.Second}

	first := newStore(kv, clk, opts)
	if _, err := first.StartSession(context.Background(), "sphere"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	clk.Advance(10 * time.Minute)
	if err := first.Checkpoint(context.Background(), 600); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	clk.Advance(121 * time.Second)
	second := newStore(kv, clk, opts)
	record, err := second.RecoverAbandoned(context.Background())
	if err != nil {
		t.Fatalf("RecoverAbandoned: %v", err)
	}
	if record != nil {
		t.Fatalf("stale checkpoint must be discarded, got %+v", record)
	}
	if _, ok := kv.values[session.ActiveSessionKey]; ok {
		t.Fatal("stale record must still be cleared")
	}
}

func TestRecoverUnreadableRecordDiscards(t *testing.T) {
	kv := newFakeKV()
	kv.values[session.ActiveSessionKey] = "{not json"
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	store := newStore(kv, clk, session.Options{})

	record, err := store.RecoverAbandoned(context.Background())
	if err != nil {
		t.Fatalf("RecoverAbandoned: %v", err)
	}
	if record != nil {
		t.Fatalf("unreadable record must be discarded, got %+v", record)
	}
	if _, ok := kv.values[session.ActiveSessionKey]; ok {
		t.Fatal("unreadable record must be cleared")
	}
}

func TestRecoverWithNoRecord(t *testing.T) {
	kv := newFakeKV()
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	store := newStore(kv, clk, session.Options{})

	record, err := store.RecoverAbandoned(context.Background())
	if err != nil {
		t.Fatalf("RecoverAbandoned: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record, got %+v", record)
	}
}

func TestSwitchProfileBreakdown(t *testing.T) {
	kv := newFakeKV()
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	store := newStore(kv, clk, session.Options{MinDuration: 60 * time.Second})

	if _, err := store.StartSession(context.Background(), "sphere"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	clk.Advance(5 * time.Minute)
	if err := store.SwitchProfile(context.Background(), "lotus", 300); err != nil {
		t.Fatalf("SwitchProfile: %v", err)
	}

	clk.Advance(10 * time.Minute)
	if err := store.Checkpoint(context.Background(), 900); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	record, err := store.CompleteSession(context.Background())
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if record.ProfileType != "lotus" {
		t.Fatalf("headline profile = %q, want lotus with the larger share", record.ProfileType)
	}
	if record.Breakdown["sphere"] != 300 {
		t.Fatalf("sphere seconds = %d, want 300", record.Breakdown["sphere"])
	}
	if record.Breakdown["lotus"] != 600 {
		t.Fatalf("lotus seconds = %d, want 600", record.Breakdown["lotus"])
	}
}

func TestHeadlineProfileTieGoesToFirstUsed(t *testing.T) {
	kv := newFakeKV()
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	store := newStore(kv, clk, session.Options{MinDuration: 60 * time.Second})

	if _, err := store.StartSession(context.Background(), "aurora"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := store.SwitchProfile(context.Background(), "sphere", 300); err != nil {
		t.Fatalf("SwitchProfile: %v", err)
	}
	if err := store.Checkpoint(context.Background(), 600); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	record, err := store.CompleteSession(context.Background())
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if record.ProfileType != "aurora" {
		t.Fatalf("headline profile on tie = %q, want first-used aurora", record.ProfileType)
	}
}

func TestFinalRemainderCreditedToCurrentProfile(t *testing.T) {
	kv := newFakeKV()
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	store := newStore(kv, clk, session.Options{MinDuration: 60 * time.Second})

	if _, err := store.StartSession(context.Background(), "sphere"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	// Final checkpoint lands past the last attribution.
	if err := store.Checkpoint(context.Background(), 95); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	record, err := store.CompleteSession(context.Background())
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if record.Breakdown["sphere"] != 95 {
		t.Fatalf("sphere seconds = %d, want full 95", record.Breakdown["sphere"])
	}
}

func TestCheckpointWithoutSession(t *testing.T) {
	kv := newFakeKV()
	store := newStore(kv, clock.NewFake(time.Unix(1_700_000_000, 0)), session.Options{})

	if err := store.Checkpoint(context.Background(), 10); err != session.ErrNoActiveSession {
		t.Fatalf("Checkpoint = %v, want ErrNoActiveSession", err)
	}
	if _, err := store.CompleteSession(context.Background()); err != session.ErrNoActiveSession {
		t.Fatalf("CompleteSession = %v, want ErrNoActiveSession", err)
	}
}
