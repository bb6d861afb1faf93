// Package retryqueue persists session records whose submission failed and
// replays them on the next opportunity.
//
// The queue is bounded; when full, the oldest record is dropped. Flush
// partitions records into succeeded and still-failed sets, and the submission
// backend deduplicates on session id, so a record resubmitted after a partial
// success is harmless.
package retryqueue
