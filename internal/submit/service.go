package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"stillpoint/internal/config"
	"stillpoint/internal/kvstore"
	"stillpoint/internal/logging"
	"stillpoint/internal/session"
)

const userAgent = "Stillpoint-Go/0.1.0"

// Submitter delivers a finalized session record to the backend of record.
// Implementations must treat the session id as an idempotency key: submitting
// the same record twice may not produce two sessions.
type Submitter interface {
	Submit(ctx context.Context, record *session.Record) error
}

// NewService builds the submission backend. When a remote endpoint is
// configured, records are posted there; otherwise they are archived in the
// local database so completed practice is never dropped on the floor.
func NewService(cfg *config.Config, store *kvstore.Store, logger *slog.Logger) Submitter {
	endpoint := strings.TrimSpace(cfg.Submission.Endpoint)
	if endpoint == "" {
		return &archiveSubmitter{
			store:  store,
			logger: logging.WithComponent(logger, "submit"),
		}
	}

	timeout := time.Duration(cfg.Submission.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &httpSubmitter{
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.Submission.Token),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.WithComponent(logger, "submit"),
	}
}

type httpSubmitter struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

func (s *httpSubmitter) Submit(ctx context.Context, record *session.Record) error {
	if record == nil {
		return nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", record.SessionID)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("submission backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	s.logger.Info("session submitted",
		logging.String(logging.FieldSessionID, record.SessionID),
		logging.Int("duration_seconds", record.DurationSeconds),
	)
	return nil
}

type archiveSubmitter struct {
	store  *kvstore.Store
	logger *slog.Logger
}

func (s *archiveSubmitter) Submit(ctx context.Context, record *session.Record) error {
	if record == nil {
		return nil
	}

	breakdownJSON := ""
	if len(record.Breakdown) > 0 {
		payload, err := json.Marshal(record.Breakdown)
		if err != nil {
			return fmt.Errorf("marshal breakdown: %w", err)
		}
		breakdownJSON = string(payload)
	}

	entry := kvstore.HistoryEntry{
		SessionID:       record.SessionID,
		ProfileType:     record.ProfileType,
		DurationSeconds: record.DurationSeconds,
		StartedAt:       record.StartedAt(),
		CompletedAt:     record.CompletedAt(),
		BreakdownJSON:   breakdownJSON,
	}
	if err := s.store.SaveHistory(ctx, entry); err != nil {
		return fmt.Errorf("archive session: %w", err)
	}

	s.logger.Info("session archived locally",
		logging.String(logging.FieldSessionID, record.SessionID),
		logging.Int("duration_seconds", record.DurationSeconds),
	)
	return nil
}
