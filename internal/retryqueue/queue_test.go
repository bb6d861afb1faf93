package retryqueue_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"stillpoint/internal/logging"
	"stillpoint/internal/retryqueue"
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

// fakeSubmitter fails ids listed in failing and records every attempt.
type fakeSubmitter struct {
	failing   map[string]bool
	submitted []string
}

func (f *fakeSubmitter) Submit(_ context.Context, record *session.Record) error {
	f.submitted = append(f.submitted, record.SessionID)
	if f.failing[record.SessionID] {
		return errors.New("backend unavailable")
	}
	return nil
}

func record(id string) *session.Record {
	return &session.Record{SessionID: id, ProfileType: "sphere", DurationSeconds: 300}
}

func TestEnqueueDropsOldestAtCapacity(t *testing.T) {
	kv := newFakeKV()
	queue := retryqueue.New(kv, &fakeSubmitter{}, logging.NewNop(), 10)

	for i := 0; i < 11; i++ {
		if err := queue.Enqueue(context.Background(), record(fmt.Sprintf("session-%02d", i))); err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
	}

	pending, err := queue.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 10 {
		t.Fatalf("pending = %d, want capped at 10", len(pending))
	}
	if pending[0].SessionID != "session-01" {
		t.Fatalf("oldest = %q, want session-01 after dropping session-00", pending[0].SessionID)
	}
	if pending[9].SessionID != "session-10" {
		t.Fatalf("newest = %q, want session-10", pending[9].SessionID)
	}
}

func TestFlushPartitionsResults(t *testing.T) {
	kv := newFakeKV()
	submitter := &fakeSubmitter{failing: map[string]bool{"session-b": true}}
	queue := retryqueue.New(kv, submitter, logging.NewNop(), 10)

	for _, id := range []string{"session-a", "session-b", "session-c"} {
		if err := queue.Enqueue(context.Background(), record(id)); err != nil {
			t.Fatalf("Enqueue %s: %v", id, err)
		}
	}

	result, err := queue.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(result.Succeeded) != 2 {
		t.Fatalf("succeeded = %d, want 2", len(result.Succeeded))
	}
	if len(result.StillFailed) != 1 || result.StillFailed[0].SessionID != "session-b" {
		t.Fatalf("still failed = %+v, want only session-b", result.StillFailed)
	}

	pending, err := queue.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].SessionID != "session-b" {
		t.Fatalf("pending after flush = %+v, want only session-b", pending)
	}
}

func TestFlushEmptiesQueueOnFullSuccess(t *testing.T) {
	kv := newFakeKV()
	queue := retryqueue.New(kv, &fakeSubmitter{}, logging.NewNop(), 10)

	if err := queue.Enqueue(context.Background(), record("session-a")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := queue.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if _, ok := kv.values[retryqueue.Key]; ok {
		t.Fatal("fully flushed queue should remove its key")
	}
}

func TestFlushEmptyQueueIsNoop(t *testing.T) {
	kv := newFakeKV()
	submitter := &fakeSubmitter{}
	queue := retryqueue.New(kv, submitter, logging.NewNop(), 10)

	result, err := queue.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(result.Succeeded) != 0 || len(result.StillFailed) != 0 {
		t.Fatalf("empty flush = %+v, want nothing", result)
	}
	if len(submitter.submitted) != 0 {
		t.Fatal("empty flush must not call the submitter")
	}
}

func TestUnreadableQueueResets(t *testing.T) {
	kv := newFakeKV()
	kv.values[retryqueue.Key] = "{corrupt"
	queue := retryqueue.New(kv, &fakeSubmitter{}, logging.NewNop(), 10)

	pending, err := queue.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want reset to empty", len(pending))
	}

	if err := queue.Enqueue(context.Background(), record("session-a")); err != nil {
		t.Fatalf("Enqueue after corruption: %v", err)
	}
	pending, err = queue.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
}

func TestEnqueueNilRecordIgnored(t *testing.T) {
	kv := newFakeKV()
	queue := retryqueue.New(kv, &fakeSubmitter{}, logging.NewNop(), 10)

	if err := queue.Enqueue(context.Background(), nil); err != nil {
		t.Fatalf("Enqueue(nil): %v", err)
	}
	pending, err := queue.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want 0", len(pending))
	}
}
