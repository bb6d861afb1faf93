package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// HistoryEntry is a completed session as archived in the local database.
type HistoryEntry struct {
	SessionID       string
	ProfileType     string
	DurationSeconds int
	StartedAt       time.Time
	CompletedAt     time.Time
	BreakdownJSON   string
	RecordedAt      time.Time
}

// SaveHistory records a completed session. Saving the same session id twice
// overwrites the previous row, so replayed submissions stay idempotent.
func (s *Store) SaveHistory(ctx context.Context, entry HistoryEntry) error {
	if entry.SessionID == "" {
		return errors.New("history entry requires a session id")
	}
	now := s.clock.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO session_history (
            session_id, profile_type, duration_seconds, started_at, completed_at,
            breakdown_json, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(session_id) DO UPDATE SET
            profile_type = excluded.profile_type,
            duration_seconds = excluded.duration_seconds,
            started_at = excluded.started_at,
            completed_at = excluded.completed_at,
            breakdown_json = excluded.breakdown_json,
            recorded_at = excluded.recorded_at`,
		entry.SessionID,
		entry.ProfileType,
		entry.DurationSeconds,
		entry.StartedAt.UTC().Format(time.RFC3339Nano),
		entry.CompletedAt.UTC().Format(time.RFC3339Nano),
		nullableString(entry.BreakdownJSON),
		now,
	)
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// ListHistory returns archived sessions, most recently completed first.
// A limit of zero or less returns every entry.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	query := `SELECT session_id, profile_type, duration_seconds, started_at, completed_at,
        breakdown_json, recorded_at FROM session_history ORDER BY completed_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanHistory(scanner interface{ Scan(dest ...any) error }) (HistoryEntry, error) {
	var (
		entry        HistoryEntry
		startedRaw   string
		completedRaw string
		breakdown    *string
		recordedRaw  string
	)
	if err := scanner.Scan(
		&entry.SessionID,
		&entry.ProfileType,
		&entry.DurationSeconds,
		&startedRaw,
		&completedRaw,
		&breakdown,
		&recordedRaw,
	); err != nil {
		return HistoryEntry{}, fmt.Errorf("scan history row: %w", err)
	}
	if breakdown != nil {
		entry.BreakdownJSON = *breakdown
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		entry.StartedAt = started
	}
	if completed, err := parseTimeString(completedRaw); err == nil {
		entry.CompletedAt = completed
	}
	if recorded, err := parseTimeString(recordedRaw); err == nil {
		entry.RecordedAt = recorded
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
