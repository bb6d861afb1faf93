package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"stillpoint/internal/clock"
	"stillpoint/internal/engine"
	"stillpoint/internal/logging"
	"stillpoint/internal/testsupport"
)

func startDaemon(t *testing.T, token string) (*Daemon, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.API.Token = token
	store := testsupport.MustOpenStore(t, cfg, clock.System())

	eng, err := engine.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	d, err := New(cfg, store, eng, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, "http://" + d.api.Addr()
}

func TestStatusEndpoint(t *testing.T) {
	_, base := startDaemon(t, "")

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		Running bool `json:"running"`
		Engine  struct {
			SessionActive bool `json:"session_active"`
		} `json:"engine"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.Running {
		t.Fatal("daemon should report running")
	}
	if payload.Engine.SessionActive {
		t.Fatal("no session should be active")
	}
}

func TestBearerTokenRequired(t *testing.T) {
	_, base := startDaemon(t, "hunter2")

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, base+"/api/status", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer hunter2")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authenticated GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", resp.StatusCode)
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	d, _ := startDaemon(t, "")

	eng, err := engine.New(d.cfg, d.store, logging.NewNop())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	second, err := New(d.cfg, d.store, eng, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon instance should fail to acquire the lock")
	}
}
