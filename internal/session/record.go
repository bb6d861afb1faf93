package session

import (
	"time"
)

// Record is a finalized meditation session handed to the submission backend.
// SessionID doubles as the idempotency key for resubmission.
type Record struct {
	SessionID       string         `json:"session_id"`
	ProfileType     string         `json:"profile_type"`
	DurationSeconds int            `json:"duration_seconds"`
	StartedAtMs     int64          `json:"started_at_ms"`
	CompletedAtMs   int64          `json:"completed_at_ms"`
	// Breakdown maps each visual profile used during the session to the
	// seconds spent in it. ProfileType is the profile with the largest share.
	Breakdown map[string]int `json:"breakdown,omitempty"`
}

// StartedAt returns the session start as a time.Time.
func (r *Record) StartedAt() time.Time {
	return time.UnixMilli(r.StartedAtMs).UTC()
}

// CompletedAt returns the session completion as a time.Time.
func (r *Record) CompletedAt() time.Time {
	return time.UnixMilli(r.CompletedAtMs).UTC()
}

// activeRecord is the persisted shape of an in-progress session. It is
// overwritten in place on every checkpoint; at most one exists at a time.
type activeRecord struct {
	SessionID        string         `json:"session_id"`
	CurrentProfile   string         `json:"current_profile"`
	ProfileOrder     []string       `json:"profile_order"`
	Breakdown        map[string]int `json:"breakdown"`
	AccountedSeconds int            `json:"accounted_seconds"`
	DurationSeconds  int            `json:"duration_seconds"`
	StartedAtMs      int64          `json:"started_at_ms"`
	UpdatedAtMs      int64          `json:"updated_at_ms"`
}

// headlineProfile picks the profile with the most accumulated seconds. Ties
// go to the profile that first appeared in the session.
func headlineProfile(order []string, breakdown map[string]int) string {
	best := ""
	bestSeconds := -1
	for _, name := range order {
		if seconds := breakdown[name]; seconds > bestSeconds {
			best = name
			bestSeconds = seconds
		}
	}
	return best
}
