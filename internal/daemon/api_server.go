package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"stillpoint/internal/config"
	"stillpoint/internal/kvstore"
	"stillpoint/internal/logging"
	"stillpoint/internal/presence"
)

// apiServer is the narrow HTTP surface the renderer and breath sensor bridge
// talk to. It translates requests into engine calls and never holds state of
// its own.
type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		token:  strings.TrimSpace(cfg.API.Token),
		logger: logging.WithComponent(logger, "api"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(srv.token, srv.handleStatus))
	mux.HandleFunc("/api/session/start", authMiddleware(srv.token, srv.handleSessionStart))
	mux.HandleFunc("/api/session/stop", authMiddleware(srv.token, srv.handleSessionStop))
	mux.HandleFunc("/api/session/profile", authMiddleware(srv.token, srv.handleSwitchProfile))
	mux.HandleFunc("/api/timer/target", authMiddleware(srv.token, srv.handleTimerTarget))
	mux.HandleFunc("/api/timer/validate", authMiddleware(srv.token, srv.handleValidate))
	mux.HandleFunc("/api/breath", authMiddleware(srv.token, srv.handleBreath))
	mux.HandleFunc("/api/multiplier", authMiddleware(srv.token, srv.handleMultiplier))
	mux.HandleFunc("/api/history", authMiddleware(srv.token, srv.handleHistory))
	mux.HandleFunc("/api/flush", authMiddleware(srv.token, srv.handleFlush))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listener address, for tests using port zero.
func (s *apiServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"running":   status.Running,
		"engine":    status.Engine,
		"db_path":   status.DBPath,
		"lock_path": status.LockFilePath,
	})
}

func (s *apiServer) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Profile string `json:"profile"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sessionID, err := s.daemon.engine.StartSession(r.Context(), req.Profile)
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID})
}

func (s *apiServer) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result, err := s.daemon.engine.StopSession(r.Context())
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"elapsed_seconds":   result.ElapsedSeconds,
		"remaining_seconds": result.RemainingSeconds,
	})
}

func (s *apiServer) handleSwitchProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Profile string `json:"profile"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.daemon.engine.SwitchProfile(r.Context(), req.Profile); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"profile": req.Profile})
}

func (s *apiServer) handleTimerTarget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var err error
	if req.Seconds <= 0 {
		err = s.daemon.engine.ClearTarget(r.Context())
	} else {
		err = s.daemon.engine.SetTarget(r.Context(), req.Seconds)
	}
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"target_seconds": req.Seconds})
}

func (s *apiServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.daemon.engine.Validate(r.Context())
	s.writeJSON(w, http.StatusOK, s.daemon.engine.Snapshot())
}

func (s *apiServer) handleBreath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var sample presence.BreathSample
	if err := decodeBody(r, &sample); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	output := s.daemon.engine.IngestBreath(sample)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"size":            output.Size,
		"immersion_level": output.ImmersionLevel,
	})
}

func (s *apiServer) handleMultiplier(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Multiplier float64 `json:"multiplier"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.daemon.engine.SetMultiplier(req.Multiplier)
	s.writeJSON(w, http.StatusOK, map[string]any{"multiplier": req.Multiplier})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries, err := s.daemon.store.ListHistory(r.Context(), 50)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, historyJSON(entry))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": payload})
}

func (s *apiServer) handleFlush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	succeeded, stillFailed, err := s.daemon.engine.FlushRetries(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"succeeded":    succeeded,
		"still_failed": stillFailed,
	})
}

func historyJSON(entry kvstore.HistoryEntry) map[string]any {
	return map[string]any{
		"session_id":       entry.SessionID,
		"profile_type":     entry.ProfileType,
		"duration_seconds": entry.DurationSeconds,
		"started_at":       entry.StartedAt.Format(time.RFC3339),
		"completed_at":     entry.CompletedAt.Format(time.RFC3339),
	}
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
