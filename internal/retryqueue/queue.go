package retryqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"stillpoint/internal/kvstore"
	"stillpoint/internal/logging"
	"stillpoint/internal/session"
	"stillpoint/internal/submit"
)

// Key is the key-value entry holding records awaiting resubmission.
const Key = "failed-session-queue"

// DefaultLimit bounds the queue when no limit is configured.
const DefaultLimit = 10

// Queue holds session records whose submission failed and replays them on the
// next opportunity. It is a bounded best-effort at-least-once mechanism, not
// a durable log: when full, the oldest record is dropped first.
type Queue struct {
	kv        kvstore.KV
	submitter submit.Submitter
	logger    *slog.Logger
	limit     int
}

// FlushResult partitions the queued records after a flush attempt.
type FlushResult struct {
	Succeeded   []session.Record
	StillFailed []session.Record
}

// New constructs a retry queue over the given key-value backend.
func New(kv kvstore.KV, submitter submit.Submitter, logger *slog.Logger, limit int) *Queue {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Queue{
		kv:        kv,
		submitter: submitter,
		logger:    logging.WithComponent(logger, "retryqueue"),
		limit:     limit,
	}
}

// Enqueue appends a record to the persisted queue, dropping the oldest
// records beyond the limit.
func (q *Queue) Enqueue(ctx context.Context, record *session.Record) error {
	if record == nil {
		return nil
	}
	records, err := q.load(ctx)
	if err != nil {
		return err
	}

	records = append(records, *record)
	if dropped := len(records) - q.limit; dropped > 0 {
		for _, lost := range records[:dropped] {
			q.logger.Warn("dropping oldest queued session, queue full",
				logging.String(logging.FieldSessionID, lost.SessionID),
				logging.Int("limit", q.limit),
			)
		}
		records = records[dropped:]
	}

	if err := q.save(ctx, records); err != nil {
		return err
	}
	q.logger.Info("session queued for retry",
		logging.String(logging.FieldSessionID, record.SessionID),
		logging.Int("pending", len(records)),
	)
	return nil
}

// Pending returns the queued records, oldest first.
func (q *Queue) Pending(ctx context.Context) ([]session.Record, error) {
	return q.load(ctx)
}

// Flush resubmits every queued record. Records that succeed are removed;
// records that fail remain queued for the next flush opportunity. The backend
// treats the session id as an idempotency key, so resubmitting a record that
// partially succeeded before is safe.
func (q *Queue) Flush(ctx context.Context) (FlushResult, error) {
	records, err := q.load(ctx)
	if err != nil {
		return FlushResult{}, err
	}
	if len(records) == 0 {
		return FlushResult{}, nil
	}

	var result FlushResult
	for i := range records {
		record := records[i]
		if err := q.submitter.Submit(ctx, &record); err != nil {
			q.logger.Warn("resubmission failed, keeping queued",
				logging.String(logging.FieldSessionID, record.SessionID),
				logging.Error(err),
			)
			result.StillFailed = append(result.StillFailed, record)
			continue
		}
		result.Succeeded = append(result.Succeeded, record)
	}

	if err := q.save(ctx, result.StillFailed); err != nil {
		return result, err
	}
	if len(result.Succeeded) > 0 {
		q.logger.Info("flushed retry queue",
			logging.Int("succeeded", len(result.Succeeded)),
			logging.Int("still_failed", len(result.StillFailed)),
		)
	}
	return result, nil
}

func (q *Queue) load(ctx context.Context) ([]session.Record, error) {
	raw, ok, err := q.kv.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("read retry queue: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var records []session.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		// An unreadable queue is best-effort state; start over rather than
		// wedging every future enqueue.
		q.logger.Warn("resetting unreadable retry queue", logging.Error(err))
		return nil, nil
	}
	return records, nil
}

func (q *Queue) save(ctx context.Context, records []session.Record) error {
	if len(records) == 0 {
		if err := q.kv.Remove(ctx, Key); err != nil {
			return fmt.Errorf("clear retry queue: %w", err)
		}
		return nil
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal retry queue: %w", err)
	}
	if err := q.kv.Set(ctx, Key, string(payload)); err != nil {
		return fmt.Errorf("write retry queue: %w", err)
	}
	return nil
}
