// Package submit delivers finalized session records to the backend of record.
//
// Two implementations exist behind the Submitter interface: an HTTP client
// for a configured remote endpoint, and a local archive writing to the
// session history table when no endpoint is set. Both are idempotent on the
// session id so retry-queue replays cannot duplicate sessions.
package submit
