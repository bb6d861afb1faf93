package submit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stillpoint/internal/clock"
	"stillpoint/internal/logging"
	"stillpoint/internal/session"
	"stillpoint/internal/submit"
	"stillpoint/internal/testsupport"
)

func testRecord() *session.Record {
	return &session.Record{
		SessionID:       "7b5a1c9e-test",
		ProfileType:     "sphere",
		DurationSeconds: 600,
		StartedAtMs:     1_700_000_000_000,
		CompletedAtMs:   1_700_000_600_000,
		Breakdown:       map[string]int{"sphere": 600},
	}
}

func TestHTTPSubmitterPostsRecord(t *testing.T) {
	var gotIdempotency, gotAuth string
	var gotRecord session.Record

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotIdempotency = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotRecord); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithSubmissionEndpoint(server.URL))
	cfg.Submission.Token = "secret"
	store := testsupport.MustOpenStore(t, cfg, clock.System())

	service := submit.NewService(cfg, store, logging.NewNop())
	if err := service.Submit(context.Background(), testRecord()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gotIdempotency != "7b5a1c9e-test" {
		t.Fatalf("idempotency key = %q, want the session id", gotIdempotency)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotRecord.DurationSeconds != 600 {
		t.Fatalf("posted duration = %d, want 600", gotRecord.DurationSeconds)
	}
}

func TestHTTPSubmitterRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend full", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithSubmissionEndpoint(server.URL))
	store := testsupport.MustOpenStore(t, cfg, clock.System())

	service := submit.NewService(cfg, store, logging.NewNop())
	if err := service.Submit(context.Background(), testRecord()); err == nil {
		t.Fatal("5xx response should surface as an error")
	}
}

func TestArchiveSubmitterWritesHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, clock.System())

	service := submit.NewService(cfg, store, logging.NewNop())
	record := testRecord()
	if err := service.Submit(context.Background(), record); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Resubmitting the same session must stay idempotent.
	if err := service.Submit(context.Background(), record); err != nil {
		t.Fatalf("Submit replay: %v", err)
	}

	entries, err := store.ListHistory(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history = %d rows, want 1", len(entries))
	}
	if entries[0].SessionID != record.SessionID {
		t.Fatalf("archived id = %q", entries[0].SessionID)
	}
	if entries[0].BreakdownJSON == "" {
		t.Fatal("breakdown should be archived")
	}
}

func TestSubmitNilRecordIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, clock.System())

	service := submit.NewService(cfg, store, logging.NewNop())
	if err := service.Submit(context.Background(), nil); err != nil {
		t.Fatalf("Submit(nil): %v", err)
	}
}
