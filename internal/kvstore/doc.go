// Package kvstore persists stillpoint state in SQLite.
//
// The Store exposes two surfaces: a narrow key-value contract (KV) holding the
// active session record, the failed-session retry queue, and the persisted
// timer target, plus a session history archive used when no remote submission
// backend is configured.
//
// The key-value side is treated as transient recovery state rather than an
// archive; at most one active session record exists at a time. Schema changes
// bump the version in schema.go; users delete the database to adopt the new
// schema.
package kvstore
